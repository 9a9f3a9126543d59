package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shoplist/adminapi/internal/config"
	"github.com/shoplist/adminapi/internal/model"
	"github.com/shoplist/adminapi/internal/service"
)

// ShopHandler serves the shopping-list data: users, articles, lists and
// categories.
type ShopHandler struct {
	store  *config.Store
	logger *slog.Logger
}

// NewShopHandler creates a new ShopHandler.
func NewShopHandler(store *config.Store, logger *slog.Logger) *ShopHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ShopHandler{store: store, logger: logger}
}

// notFoundOr writes 404 with notFoundMsg for config.ErrNotFound and a
// classified database error otherwise.
func notFoundOr(w http.ResponseWriter, err error, notFoundMsg, fallback string) {
	if errors.Is(err, config.ErrNotFound) {
		writeError(w, http.StatusNotFound, notFoundMsg)
		return
	}
	status, msg := classifyDBError(err, fallback)
	writeError(w, status, msg)
}

// optional turns an empty string into nil.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// ListUsers returns all users.
// GET /api/users
func (h *ShopHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateUser registers a user. The password is stored as a bcrypt hash.
// POST /api/users
func (h *ShopHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	u := model.User{Username: strings.TrimSpace(req.Username), Email: strings.TrimSpace(req.Email)}
	if u.Username == "" {
		writeError(w, http.StatusBadRequest, "Username is required")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "Password is required")
		return
	}

	hash, err := service.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}
	if err := h.store.CreateUser(r.Context(), &u, hash); err != nil {
		status, msg := classifyDBError(err, "Failed to create user")
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "User created successfully",
		"user":    u,
	})
}

// ---------------------------------------------------------------------------
// Articles
// ---------------------------------------------------------------------------

type articleRequest struct {
	UUID         string `json:"uuid"`
	Name         string `json:"name"`
	CategoryUUID string `json:"category_uuid"`
	UserUUID     string `json:"user_uuid"`
	ListUUID     string `json:"list_uuid"`
}

// ListArticles returns all articles.
// GET /api/articles
func (h *ShopHandler) ListArticles(w http.ResponseWriter, r *http.Request) {
	arts, err := h.store.ListArticles(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list articles: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"articles": arts})
}

// CreateArticle creates an article, optionally on a list.
// POST /api/articles
func (h *ShopHandler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	var req articleRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	h.createArticle(w, r, req)
}

// CreateListArticle adds an article to the list named in the path.
// POST /api/lists/{listUuid}/articles
func (h *ShopHandler) CreateListArticle(w http.ResponseWriter, r *http.Request) {
	var req articleRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	listID := chi.URLParam(r, "listUuid")
	if _, err := h.store.GetShoppingList(r.Context(), listID); err != nil {
		notFoundOr(w, err, "List not found", "Failed to load list")
		return
	}
	req.ListUUID = listID
	h.createArticle(w, r, req)
}

func (h *ShopHandler) createArticle(w http.ResponseWriter, r *http.Request, req articleRequest) {
	a := model.Article{
		Name:         strings.TrimSpace(req.Name),
		CategoryUUID: optional(req.CategoryUUID),
		UserUUID:     optional(req.UserUUID),
		ListUUID:     optional(req.ListUUID),
	}
	if a.Name == "" {
		writeError(w, http.StatusBadRequest, "Article name is required")
		return
	}
	if err := h.store.CreateArticle(r.Context(), &a); err != nil {
		status, msg := classifyDBError(err, "Failed to create article")
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Article created successfully",
		"article": a,
	})
}

// UpdateArticle renames an article addressed by the uuid in the body.
// PATCH /api/articles
func (h *ShopHandler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	var req articleRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	h.updateArticle(w, r, req)
}

// UpdateArticleByID updates the article named in the path.
// PUT /api/articles/{uuid}
func (h *ShopHandler) UpdateArticleByID(w http.ResponseWriter, r *http.Request) {
	var req articleRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	req.UUID = chi.URLParam(r, "uuid")
	h.updateArticle(w, r, req)
}

func (h *ShopHandler) updateArticle(w http.ResponseWriter, r *http.Request, req articleRequest) {
	a := model.Article{
		UUID:         strings.TrimSpace(req.UUID),
		Name:         strings.TrimSpace(req.Name),
		CategoryUUID: optional(req.CategoryUUID),
	}
	if a.UUID == "" {
		writeError(w, http.StatusBadRequest, "Article uuid is required")
		return
	}
	if a.Name == "" {
		writeError(w, http.StatusBadRequest, "Article name is required")
		return
	}
	if err := h.store.UpdateArticle(r.Context(), &a); err != nil {
		notFoundOr(w, err, "Article not found", "Failed to update article")
		return
	}
	writeJSON(w, http.StatusOK, model.SuccessResponse{Success: true, Message: "Article updated successfully"})
}

// DeleteArticle removes the article addressed by the uuid in the body.
// DELETE /api/articles
func (h *ShopHandler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	var req articleRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	h.deleteArticle(w, r, strings.TrimSpace(req.UUID))
}

// DeleteArticleByID removes the article named in the path.
// DELETE /api/articles/{uuid}
func (h *ShopHandler) DeleteArticleByID(w http.ResponseWriter, r *http.Request) {
	h.deleteArticle(w, r, chi.URLParam(r, "uuid"))
}

func (h *ShopHandler) deleteArticle(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" {
		writeError(w, http.StatusBadRequest, "Article uuid is required")
		return
	}
	if err := h.store.DeleteArticle(r.Context(), id); err != nil {
		notFoundOr(w, err, "Article not found", "Failed to delete article")
		return
	}
	writeJSON(w, http.StatusOK, model.SuccessResponse{Success: true, Message: "Article deleted successfully"})
}

// ListArticlesInList returns the articles on the list named in the path.
// GET /api/lists/{listUuid}/articles
func (h *ShopHandler) ListArticlesInList(w http.ResponseWriter, r *http.Request) {
	listID := chi.URLParam(r, "listUuid")
	if _, err := h.store.GetShoppingList(r.Context(), listID); err != nil {
		notFoundOr(w, err, "List not found", "Failed to load list")
		return
	}
	arts, err := h.store.ListArticlesInList(r.Context(), listID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list articles: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"articles": arts})
}

// ---------------------------------------------------------------------------
// Shopping lists
// ---------------------------------------------------------------------------

type listRequest struct {
	UUID     string `json:"uuid"`
	Name     string `json:"name"`
	UserUUID string `json:"user_uuid"`
}

// ListLists returns all shopping lists.
// GET /api/lists
func (h *ShopHandler) ListLists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.store.ListShoppingLists(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list shopping lists: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"lists": lists})
}

// CreateList creates a shopping list.
// POST /api/lists
func (h *ShopHandler) CreateList(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	l := model.ShoppingList{Name: strings.TrimSpace(req.Name), UserUUID: optional(req.UserUUID)}
	if l.Name == "" {
		writeError(w, http.StatusBadRequest, "List name is required")
		return
	}
	if err := h.store.CreateShoppingList(r.Context(), &l); err != nil {
		status, msg := classifyDBError(err, "Failed to create list")
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "List created successfully",
		"list":    l,
	})
}

// RenameList renames the list addressed by the uuid in the body.
// PATCH /api/lists
func (h *ShopHandler) RenameList(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	id, name := strings.TrimSpace(req.UUID), strings.TrimSpace(req.Name)
	if id == "" {
		writeError(w, http.StatusBadRequest, "List uuid is required")
		return
	}
	if name == "" {
		writeError(w, http.StatusBadRequest, "List name is required")
		return
	}
	if err := h.store.RenameShoppingList(r.Context(), id, name); err != nil {
		notFoundOr(w, err, "List not found", "Failed to update list")
		return
	}
	writeJSON(w, http.StatusOK, model.SuccessResponse{Success: true, Message: "List updated successfully"})
}

// DeleteList removes the list addressed by the uuid in the body, together
// with its articles.
// DELETE /api/lists
func (h *ShopHandler) DeleteList(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	h.deleteList(w, r, strings.TrimSpace(req.UUID))
}

// DeleteListByID removes the list named in the path.
// DELETE /api/lists/{uuid}
func (h *ShopHandler) DeleteListByID(w http.ResponseWriter, r *http.Request) {
	h.deleteList(w, r, chi.URLParam(r, "uuid"))
}

func (h *ShopHandler) deleteList(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" {
		writeError(w, http.StatusBadRequest, "List uuid is required")
		return
	}
	if err := h.store.DeleteShoppingList(r.Context(), id); err != nil {
		notFoundOr(w, err, "List not found", "Failed to delete list")
		return
	}
	writeJSON(w, http.StatusOK, model.SuccessResponse{Success: true, Message: "List deleted successfully"})
}

// ---------------------------------------------------------------------------
// Categories
// ---------------------------------------------------------------------------

type categoryRequest struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// ListCategories returns all categories.
// GET /api/categories
func (h *ShopHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.store.ListCategories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list categories: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"categories": cats})
}

// CreateCategory creates a category.
// POST /api/categories
func (h *ShopHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	c := model.Category{Name: strings.TrimSpace(req.Name), Icon: req.Icon}
	if c.Name == "" {
		writeError(w, http.StatusBadRequest, "Category name is required")
		return
	}
	if err := h.store.CreateCategory(r.Context(), &c); err != nil {
		status, msg := classifyDBError(err, "Failed to create category")
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":  true,
		"message":  "Category created successfully",
		"category": c,
	})
}

// UpdateCategory renames a category addressed by the uuid in the body.
// PATCH /api/categories
func (h *ShopHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	c := model.Category{UUID: strings.TrimSpace(req.UUID), Name: strings.TrimSpace(req.Name), Icon: req.Icon}
	if c.UUID == "" {
		writeError(w, http.StatusBadRequest, "Category uuid is required")
		return
	}
	if c.Name == "" {
		writeError(w, http.StatusBadRequest, "Category name is required")
		return
	}
	if err := h.store.UpdateCategory(r.Context(), &c); err != nil {
		notFoundOr(w, err, "Category not found", "Failed to update category")
		return
	}
	writeJSON(w, http.StatusOK, model.SuccessResponse{Success: true, Message: "Category updated successfully"})
}

// DeleteCategory removes the category addressed by the uuid in the body.
// DELETE /api/categories
func (h *ShopHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	id := strings.TrimSpace(req.UUID)
	if id == "" {
		writeError(w, http.StatusBadRequest, "Category uuid is required")
		return
	}
	if err := h.store.DeleteCategory(r.Context(), id); err != nil {
		notFoundOr(w, err, "Category not found", "Failed to delete category")
		return
	}
	writeJSON(w, http.StatusOK, model.SuccessResponse{Success: true, Message: "Category deleted successfully"})
}
