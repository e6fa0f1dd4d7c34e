// Package domain defines the persistence models for regions, daily case
// records and chat subscriptions. These types are mapped with GORM and form
// the core data layer of the bot.
package domain

import "time"

// Region represents one administrative district (Kreis). The ID is assigned
// once during seeding (the sheet row index) and never reused.
//
// Fields:
//   - ID: stable numeric primary key.
//   - Area: parent area (Bundesland) name.
//   - Name: canonical display name; rural districts that share their base name
//     with a city carry the "_Kreis" suffix (e.g. "München_Kreis").
//   - Population: inhabitants, nil until back-filled.
type Region struct {
	ID         int64  `json:"id"         gorm:"primaryKey;autoIncrement:false"`
	Area       string `json:"area"       gorm:"column:bundesland;type:varchar(64);not null;index"`
	Name       string `json:"name"       gorm:"column:kreis;type:varchar(128);not null;uniqueIndex"`
	Population *int64 `json:"population" gorm:"column:population"`
}

// TableName returns the database table name for Region.
func (Region) TableName() string { return "kreise" }

// CaseRecord is the reported new-case count of one region on one day.
// (RegionID, Date) is the primary key, so a re-fetch of the same day
// overwrites the previous values.
//
// Fields:
//   - RegionID: foreign key to kreise.id.
//   - Date: calendar day, stored as midnight UTC (see Day).
//   - NewCases: non-negative count of new cases reported for Date.
//   - Link: optional source link supplied by the contributor.
//   - Entered: the contributor already submitted the figure for the day.
type CaseRecord struct {
	RegionID int64     `json:"region_id" gorm:"column:kreis_id;primaryKey;autoIncrement:false"`
	Date     time.Time `json:"date"      gorm:"column:date;type:date;primaryKey;index"`
	NewCases int64     `json:"new_cases" gorm:"column:number_of_new_cases;not null;default:0;check:number_of_new_cases >= 0"`
	Link     string    `json:"link"      gorm:"column:link;type:text"`
	Entered  bool      `json:"entered"   gorm:"column:is_already_entered;not null;default:false"`

	Region Region `json:"-" gorm:"foreignKey:RegionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for CaseRecord.
func (CaseRecord) TableName() string { return "fallzahlen" }

// Subscription is one chat's opt-in state for the daily report. Rows are
// never deleted; unsubscribing flips Active.
type Subscription struct {
	ChatID int64 `json:"chat_id"   gorm:"column:chat_id;primaryKey;autoIncrement:false"`
	Active bool  `json:"is_active" gorm:"column:is_active;not null;default:false;index"`
}

// TableName returns the database table name for Subscription.
func (Subscription) TableName() string { return "notifications" }

// Day truncates t to its calendar date in loc and returns that date as
// midnight UTC, the representation used for CaseRecord.Date.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
