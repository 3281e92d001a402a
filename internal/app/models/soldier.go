package models

import (
	"fmt"
	"time"
)

// Soldier is a user of the system, keyed by EDIPI
type Soldier struct {
	UserID        string  `json:"user_id"`
	Rank          string  `json:"rank"`
	FirstName     string  `json:"first_name"`
	LastName      string  `json:"last_name"`
	PrimaryMOS    *string `json:"primary_mos"`
	UnitUIC       string  `json:"unit_id"`
	IsAdmin       bool    `json:"is_admin"`
	IsMaintainer  bool    `json:"is_maintainer"`
	DoDEmail      *string `json:"dod_email"`
	ReceiveEmails bool    `json:"receive_emails"`
	BirthMonth    *string `json:"birth_month"`
	ReportingML   *string `json:"reporting_ml"`
}

// NameAndRank renders "RANK First Last"
func (s *Soldier) NameAndRank() string {
	return fmt.Sprintf("%s %s %s", s.Rank, s.FirstName, s.LastName)
}

// MOSCode is a military occupational specialty
type MOSCode struct {
	MOS            string `json:"mos"`
	MOSDescription string `json:"mos_description"`
	AMTP           bool   `json:"amtp_mos"`
	ICTL           bool   `json:"ictl_mos"`
}

// Login records a visit of a soldier
type Login struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	LoginTime time.Time `json:"login_time"`
}

// OfficerRanks hold the officer variant of maintainer MOSs
var OfficerRanks = []string{"CPT", "MAJ", "LTC", "COL", "BG", "MG", "LTG", "GEN"}

// MaintainerMOS are the MOSs that make a soldier a maintainer
var MaintainerMOS = []string{"15B", "15D", "15E", "15F", "15G", "15H", "15K", "15L", "15M", "15N", "15R", "15T", "15U", "15Y", "15Z"}

// Months are the stored birth month values, January first
var Months = []string{"JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "OCT", "NOV", "DEC"}

// MonthAbbreviation maps 1..12 to JAN..DEC
func MonthAbbreviation(month int) (string, bool) {
	if month < 1 || month > 12 {
		return "", false
	}
	return Months[month-1], true
}

// IsMonth reports whether s is a stored birth month value
func IsMonth(s string) bool {
	return contains(Months, s)
}

// IsOfficer reports whether rank is an officer grade
func IsOfficer(rank string) bool {
	return contains(OfficerRanks, rank)
}

// IsMaintainerMOS reports whether mos makes a soldier a maintainer
func IsMaintainerMOS(mos string) bool {
	return contains(MaintainerMOS, mos)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// RawSoldier is a row of raw_amap_soldiers in the staging database
type RawSoldier struct {
	EDIPI      string
	Rank       *string
	PrimaryMOS *string
	FirstName  *string
	LastName   *string
	BirthMonth *int
	DoDEmail   *string
	UIC        *string
}
