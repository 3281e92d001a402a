package db

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ai2c/amap/internal/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Database.User = "amap"
	cfg.Database.Password = "pw"
	cfg.Database.Host = "db"
	cfg.Database.Port = "5432"
	cfg.Database.DBName = "amap"
	cfg.SourceDatabase.MaxOpenConns = 2
	return cfg
}

func TestNewSourceDB_UsesSourceDSNAndPings(t *testing.T) {
	dbMock, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer func() { _ = dbMock.Close() }()

	var gotDriver, gotDSN string
	orig := sqlOpenFunc
	sqlOpenFunc = func(driverName, dsn string) (*sql.DB, error) {
		gotDriver, gotDSN = driverName, dsn
		return dbMock, nil
	}
	defer func() { sqlOpenFunc = orig }()

	mock.ExpectPing()

	cfg := testConfig()
	cfg.SourceDatabase.DSN = "postgres://vantage@staging/raw"

	sourceDB, err := NewSourceDB(cfg)
	if err != nil {
		t.Fatalf("NewSourceDB: %v", err)
	}
	if sourceDB != dbMock {
		t.Fatalf("expected the opened handle to be returned")
	}
	if gotDriver != "pgx" || gotDSN != "postgres://vantage@staging/raw" {
		t.Fatalf("opened %q %q", gotDriver, gotDSN)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestNewSourceDB_PingFailure(t *testing.T) {
	dbMock, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}

	orig := sqlOpenFunc
	sqlOpenFunc = func(driverName, dsn string) (*sql.DB, error) { return dbMock, nil }
	defer func() { sqlOpenFunc = orig }()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectClose()

	if _, err := NewSourceDB(testConfig()); err == nil {
		t.Fatalf("expected ping failure to surface")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
