package models

import "time"

// Device classes recorded on a visit.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
)

// Conversion kinds attached to a visit. The empty string means no conversion.
const (
	ConversionNone     = ""
	ConversionSignup   = "signup"
	ConversionPurchase = "purchase"
	ConversionClick    = "click"
)

// DefaultReferrer is stored when the request carries no Referer header.
const DefaultReferrer = "direct"

// VisitModel is one page view of a session, merged in place while the visitor stays engaged.
// SessionTime is shared by every record of the same session and kept in sync by broadcast.
type VisitModel struct {
	Base           `bson:",inline"`
	IP             string    `json:"ip"                  gorm:"size:64;index"             bson:"ip"`
	UserAgent      string    `json:"userAgent,omitempty" gorm:"type:text"                 bson:"userAgent"`
	Referrer       string    `json:"referrer"            gorm:"size:1024"                 bson:"referrer"`
	UserID         *string   `json:"userId"              gorm:"size:64;index"             bson:"userId"`
	GuestID        *string   `json:"guestId"             gorm:"size:128;index"            bson:"guestId"`
	SessionID      string    `json:"sessionId"           gorm:"size:128;not null;index:idx_visits_session_page,priority:1" bson:"sessionId"`
	Page           string    `json:"page"                gorm:"size:512;not null;index:idx_visits_session_page,priority:2" bson:"page"`
	PageTitle      string    `json:"pageTitle"           gorm:"size:512"                  bson:"pageTitle"`
	Device         string    `json:"device"              gorm:"size:16;index"             bson:"device"`
	Browser        string    `json:"browser"             gorm:"size:32"                   bson:"browser"`
	OS             string    `json:"os"                  gorm:"size:32"                   bson:"os"`
	Country        string    `json:"country"             gorm:"size:64;index"             bson:"country"`
	City           string    `json:"city"                gorm:"size:128"                  bson:"city"`
	TimeOnPage     int64     `json:"timeOnPage"                                           bson:"timeOnPage"`
	SessionTime    int64     `json:"sessionTime"                                          bson:"sessionTime"`
	IsBounce       bool      `json:"isBounce"                                             bson:"isBounce"`
	Converted      bool      `json:"converted"                                            bson:"converted"`
	ConversionType string    `json:"conversionType"      gorm:"size:16"                   bson:"conversionType"`
	FirstVisit     time.Time `json:"firstVisit"                                           bson:"firstVisit"`
	LastVisit      time.Time `json:"lastVisit"           gorm:"index"                     bson:"lastVisit"`
}

func (VisitModel) TableName() string { return "visits" }

// ValidConversionType reports whether kind is an accepted conversion label.
func ValidConversionType(kind string) bool {
	switch kind {
	case ConversionNone, ConversionSignup, ConversionPurchase, ConversionClick:
		return true
	}
	return false
}
