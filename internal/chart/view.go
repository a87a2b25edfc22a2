package chart

// TypeView is the default presentation of an entity or link type.
type TypeView struct {
	Icon  string  `json:"icon" toml:"icon"`
	Color string  `json:"color" toml:"color"`
	Show  bool    `json:"show" toml:"show"`
	Size  float64 `json:"size,omitempty" toml:"size"`
}

// PropertyConfig describes one property a type may carry.
type PropertyConfig struct {
	TypeID   string `json:"typeId" toml:"type_id" validate:"required"`
	Label    string `json:"label" toml:"label"`
	Required bool   `json:"required,omitempty" toml:"required"`
}
