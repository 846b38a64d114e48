package model

// Project is one entry of the portfolio catalog.
type Project struct {
	Slug      string `yaml:"slug" json:"slug"`
	Title     string `yaml:"title" json:"title"`
	Protected bool   `yaml:"protected" json:"protected"`
}
