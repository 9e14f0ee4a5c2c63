package category

import (
	"time"
)

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
	IsDefault bool      `json:"isDefault,omitempty"`
}

// DefaultID - единственная встроенная категория, её нельзя удалить
const DefaultID = "personal"

// имя, под которым показываются задачи с битой ссылкой на категорию
const UnknownName = "General"

func Defaults(now time.Time) []Category {
	return []Category{
		{
			ID:        DefaultID,
			Name:      "Personal",
			Icon:      "👤",
			Color:     "bg-gradient-to-r from-blue-500 to-blue-600",
			CreatedAt: now,
			IsDefault: true,
		},
	}
}
