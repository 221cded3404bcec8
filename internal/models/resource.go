package models

// ResourceModel is one entry in the shared resource library.
type ResourceModel struct {
	Base
	Title       string `json:"title"       gorm:"not null"`
	URL         string `json:"url"         gorm:"not null"`
	Category    string `json:"category"    gorm:"index"`
	Description string `json:"description" gorm:"type:text"`
	Published   bool   `json:"published"   gorm:"default:false"`
}

func (ResourceModel) TableName() string { return "resources" }
