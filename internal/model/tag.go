package model

type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
