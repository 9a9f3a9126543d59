package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shoplist/adminapi/internal/model"
)

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// ListUsers returns all users, oldest first.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	if err := s.db.SelectContext(ctx, &users,
		"SELECT uuid, username, email, created_at FROM users ORDER BY created_at, username"); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// CreateUser inserts a user with an already hashed password. UUID and
// CreatedAt are populated.
func (s *Store) CreateUser(ctx context.Context, u *model.User, passwordHash string) error {
	u.UUID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO users
		(uuid, username, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`),
		u.UUID, u.Username, u.Email, passwordHash, u.CreatedAt); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Categories
// ---------------------------------------------------------------------------

// ListCategories returns all categories by name.
func (s *Store) ListCategories(ctx context.Context) ([]model.Category, error) {
	cats := []model.Category{}
	if err := s.db.SelectContext(ctx, &cats,
		"SELECT uuid, name, icon, created_at FROM categories ORDER BY name"); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// CreateCategory inserts a category. UUID and CreatedAt are populated.
func (s *Store) CreateCategory(ctx context.Context, c *model.Category) error {
	c.UUID = uuid.NewString()
	c.CreatedAt = time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO categories
		(uuid, name, icon, created_at) VALUES (?, ?, ?, ?)`),
		c.UUID, c.Name, c.Icon, c.CreatedAt); err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

// UpdateCategory renames a category and replaces its icon.
func (s *Store) UpdateCategory(ctx context.Context, c *model.Category) error {
	return s.execAffecting(ctx, "update category",
		"UPDATE categories SET name = ?, icon = ? WHERE uuid = ?", c.Name, c.Icon, c.UUID)
}

// DeleteCategory removes a category. Articles keep their dangling
// category reference.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	return s.execAffecting(ctx, "delete category", "DELETE FROM categories WHERE uuid = ?", id)
}

// ---------------------------------------------------------------------------
// Shopping lists
// ---------------------------------------------------------------------------

// ListShoppingLists returns all shopping lists, oldest first.
func (s *Store) ListShoppingLists(ctx context.Context) ([]model.ShoppingList, error) {
	lists := []model.ShoppingList{}
	if err := s.db.SelectContext(ctx, &lists,
		"SELECT uuid, name, user_uuid, created_at FROM shopping_lists ORDER BY created_at, name"); err != nil {
		return nil, fmt.Errorf("list shopping lists: %w", err)
	}
	return lists, nil
}

// GetShoppingList looks up a shopping list by UUID.
func (s *Store) GetShoppingList(ctx context.Context, id string) (*model.ShoppingList, error) {
	var l model.ShoppingList
	if err := s.db.GetContext(ctx, &l, s.db.Rebind(
		"SELECT uuid, name, user_uuid, created_at FROM shopping_lists WHERE uuid = ?"), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get shopping list: %w", err)
	}
	return &l, nil
}

// CreateShoppingList inserts a list. UUID and CreatedAt are populated.
func (s *Store) CreateShoppingList(ctx context.Context, l *model.ShoppingList) error {
	l.UUID = uuid.NewString()
	l.CreatedAt = time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO shopping_lists
		(uuid, name, user_uuid, created_at) VALUES (?, ?, ?, ?)`),
		l.UUID, l.Name, l.UserUUID, l.CreatedAt); err != nil {
		return fmt.Errorf("insert shopping list: %w", err)
	}
	return nil
}

// RenameShoppingList changes the name of a list.
func (s *Store) RenameShoppingList(ctx context.Context, id, name string) error {
	return s.execAffecting(ctx, "rename shopping list",
		"UPDATE shopping_lists SET name = ? WHERE uuid = ?", name, id)
}

// DeleteShoppingList removes a list and the articles on it.
func (s *Store) DeleteShoppingList(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM articles WHERE list_uuid = ?"), id); err != nil {
		return fmt.Errorf("delete list articles: %w", err)
	}
	result, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM shopping_lists WHERE uuid = ?"), id)
	if err != nil {
		return fmt.Errorf("delete shopping list: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("delete shopping list rows affected: %w", err)
	} else if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Articles
// ---------------------------------------------------------------------------

const articleColumns = "uuid, name, category_uuid, user_uuid, list_uuid, created_at"

// ListArticles returns all articles, oldest first.
func (s *Store) ListArticles(ctx context.Context) ([]model.Article, error) {
	arts := []model.Article{}
	if err := s.db.SelectContext(ctx, &arts,
		"SELECT "+articleColumns+" FROM articles ORDER BY created_at, name"); err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	return arts, nil
}

// ListArticlesInList returns the articles on one shopping list.
func (s *Store) ListArticlesInList(ctx context.Context, listID string) ([]model.Article, error) {
	arts := []model.Article{}
	if err := s.db.SelectContext(ctx, &arts, s.db.Rebind(
		"SELECT "+articleColumns+" FROM articles WHERE list_uuid = ? ORDER BY created_at, name"), listID); err != nil {
		return nil, fmt.Errorf("list articles in list: %w", err)
	}
	return arts, nil
}

// CreateArticle inserts an article. UUID and CreatedAt are populated.
func (s *Store) CreateArticle(ctx context.Context, a *model.Article) error {
	a.UUID = uuid.NewString()
	a.CreatedAt = time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO articles
		(uuid, name, category_uuid, user_uuid, list_uuid, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
		a.UUID, a.Name, a.CategoryUUID, a.UserUUID, a.ListUUID, a.CreatedAt); err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

// UpdateArticle replaces the name and category of an article.
func (s *Store) UpdateArticle(ctx context.Context, a *model.Article) error {
	return s.execAffecting(ctx, "update article",
		"UPDATE articles SET name = ?, category_uuid = ? WHERE uuid = ?", a.Name, a.CategoryUUID, a.UUID)
}

// DeleteArticle removes an article.
func (s *Store) DeleteArticle(ctx context.Context, id string) error {
	return s.execAffecting(ctx, "delete article", "DELETE FROM articles WHERE uuid = ?", id)
}
