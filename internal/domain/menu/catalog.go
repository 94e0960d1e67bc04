// internal/domain/menu/catalog.go
package menu

import "github.com/shopspring/decimal"

// BuiltinCatalog returns the fixed catalog served when the remote menu is unavailable.
// A fresh slice is returned on every call.
func BuiltinCatalog() []MenuItem {
	return []MenuItem{
		{
			ID:          "1",
			Name:        "Margherita Pizza",
			Description: "Classic pizza with fresh tomatoes, mozzarella & basil",
			Price:       decimal.NewFromInt(720),
			Category:    CategoryPizza,
			Image:       "https://images.pexels.com/photos/315755/pexels-photo-315755.jpeg?auto=compress&cs=tinysrgb&w=600",
			Tags:        []string{"vegetarian", "popular"},
			IsAvailable: true,
			IsPopular:   true,
			SortOrder:   1,
		},
		{
			ID:          "2",
			Name:        "Spaghetti Carbonara",
			Description: "Roman pasta with eggs, pancetta & pecorino",
			Price:       decimal.NewFromInt(750),
			Category:    CategoryPasta,
			Image:       "https://images.pexels.com/photos/4518843/pexels-photo-4518843.jpeg?auto=compress&cs=tinysrgb&w=600",
			Tags:        []string{"popular"},
			IsAvailable: true,
			IsPopular:   true,
			SortOrder:   2,
		},
		{
			ID:          "3",
			Name:        "Bruschetta Classica",
			Description: "Grilled bread with tomatoes, basil & garlic",
			Price:       decimal.NewFromInt(380),
			Category:    CategoryAppetizers,
			Image:       "https://images.pexels.com/photos/5677972/pexels-photo-5677972.jpeg?auto=compress&cs=tinysrgb&w=600",
			Tags:        []string{"vegetarian"},
			IsAvailable: true,
			SortOrder:   3,
		},
		{
			ID:          "4",
			Name:        "Tiramisu",
			Description: "Mascarpone, espresso-soaked savoiardi & cocoa",
			Price:       decimal.NewFromInt(480),
			Category:    CategoryDesserts,
			Tags:        []string{"popular"},
			IsAvailable: true,
			IsPopular:   true,
			SortOrder:   4,
		},
		{
			ID:          "5",
			Name:        "Fettuccine Alfredo",
			Description: "Silky parmesan-butter sauce tossed with fettuccine",
			Price:       decimal.NewFromInt(680),
			Category:    CategoryPasta,
			Tags:        []string{"vegetarian"},
			IsAvailable: true,
			SortOrder:   5,
		},
		{
			ID:          "6",
			Name:        "Quattro Stagioni",
			Description: "Artichokes, ham, mushrooms & olives on tomato-mozz base",
			Price:       decimal.NewFromInt(920),
			Category:    CategoryPizza,
			Tags:        []string{},
			IsAvailable: true,
			SortOrder:   6,
		},
		{
			ID:          "7",
			Name:        "Espresso",
			Description: "Strong Italian coffee, short & bold",
			Price:       decimal.NewFromInt(180),
			Category:    CategoryBeverages,
			Tags:        []string{"popular"},
			IsAvailable: true,
			IsPopular:   true,
			SortOrder:   7,
		},
		{
			ID:          "8",
			Name:        "Panna Cotta",
			Description: "Silky vanilla cream with berry compote",
			Price:       decimal.NewFromInt(420),
			Category:    CategoryDesserts,
			Tags:        []string{"vegetarian"},
			IsAvailable: true,
			SortOrder:   8,
		},
	}
}
