// internal/models/artwork.go
package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Artwork struct {
	BaseModel
	CreatorID   uuid.UUID      `json:"creator_id" gorm:"type:uuid;not null;index"`
	Title       string         `json:"title" gorm:"size:255;not null"`
	Description string         `json:"description" gorm:"type:text"`
	Category    string         `json:"category" gorm:"size:100;index"`
	Medium      string         `json:"medium" gorm:"size:100"`
	Price       float64        `json:"price" gorm:"type:decimal(10,2);not null"`
	Images      pq.StringArray `json:"images" gorm:"type:text[]"`
	Tags        pq.StringArray `json:"tags" gorm:"type:text[]"`
	ForSale     bool           `json:"for_sale" gorm:"default:true;index"`
	IsSold      bool           `json:"is_sold" gorm:"default:false"`
	ViewCount   int64          `json:"view_count" gorm:"default:0"`

	// Relationships
	Creator User     `json:"creator,omitempty" gorm:"foreignKey:CreatorID"`
	Auction *Auction `json:"auction,omitempty" gorm:"foreignKey:ArtworkID"`
}
