package models

// Category groups donated items, e.g. clothes or furniture.
type Category struct {
	ID            string        `bson:"id" json:"id"`
	Name          string        `bson:"name" json:"name"`
	Icon          string        `bson:"icon,omitempty" json:"icon,omitempty"`
	Subcategories []Subcategory `bson:"subcategories" json:"subcategories"`
}

type Subcategory struct {
	ID         string `bson:"id" json:"id"`
	Name       string `bson:"name" json:"name"`
	CategoryID string `bson:"categoryId" json:"categoryId"`
}

// HasSubcategory reports whether id belongs to the category.
func (c Category) HasSubcategory(id string) bool {
	for _, s := range c.Subcategories {
		if s.ID == id {
			return true
		}
	}
	return false
}
