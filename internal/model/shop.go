package model

import "time"

// User is a registered shopping-list user. Password hashes never leave the
// store.
type User struct {
	UUID      string    `json:"uuid" db:"uuid"`
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Article is a single item that can be put on a shopping list.
type Article struct {
	UUID         string    `json:"uuid" db:"uuid"`
	Name         string    `json:"name" db:"name"`
	CategoryUUID *string   `json:"category_uuid" db:"category_uuid"`
	UserUUID     *string   `json:"user_uuid" db:"user_uuid"`
	ListUUID     *string   `json:"list_uuid,omitempty" db:"list_uuid"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// ShoppingList groups articles for one user.
type ShoppingList struct {
	UUID      string    `json:"uuid" db:"uuid"`
	Name      string    `json:"name" db:"name"`
	UserUUID  *string   `json:"user_uuid" db:"user_uuid"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Category classifies articles, e.g. "Obst & Gemüse".
type Category struct {
	UUID      string    `json:"uuid" db:"uuid"`
	Name      string    `json:"name" db:"name"`
	Icon      string    `json:"icon" db:"icon"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
