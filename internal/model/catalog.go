package model

type Category struct {
	BaseModel
	Name string `gorm:"type:varchar(100);not null" json:"name"`

	ProductCount int64 `gorm:"-:all" json:"product_count"`
}

type Supplier struct {
	BaseModel
	Name  string  `gorm:"type:varchar(255);not null" json:"name"`
	Email *string `gorm:"type:varchar(255)" json:"email,omitempty"`
	Phone *string `gorm:"type:varchar(50)" json:"phone,omitempty"`

	ProductCount int64 `gorm:"-:all" json:"product_count"`
}
