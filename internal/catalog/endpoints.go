package catalog

// endpoints is the routing table of the admin API. Order is the display order
// used by the endpoint listings.
var endpoints = []Endpoint{
	{ID: "users_get", Method: "GET", Path: "/api/users", Name: "List Users", Description: "Retrieve all registered users", Category: CategoryUsers},
	{ID: "users_post", Method: "POST", Path: "/api/users", Name: "Create User", Description: "Register a new user account", Category: CategoryUsers},
	{ID: "articles_get", Method: "GET", Path: "/api/articles", Name: "List Articles", Description: "Retrieve all articles", Category: CategoryArticles},
	{ID: "articles_post", Method: "POST", Path: "/api/articles", Name: "Create Article", Description: "Create a new article", Category: CategoryArticles},
	{ID: "articles_patch", Method: "PATCH", Path: "/api/articles", Name: "Update Article", Description: "Modify existing article", Category: CategoryArticles},
	{ID: "articles_delete", Method: "DELETE", Path: "/api/articles", Name: "Delete Article", Description: "Remove article permanently", Category: CategoryArticles},
	{ID: "lists_get", Method: "GET", Path: "/api/lists", Name: "List Shopping Lists", Description: "Get all shopping lists", Category: CategoryLists},
	{ID: "lists_post", Method: "POST", Path: "/api/lists", Name: "Create List", Description: "Create a new shopping list", Category: CategoryLists},
	{ID: "lists_patch", Method: "PATCH", Path: "/api/lists", Name: "Update List", Description: "Modify existing shopping list", Category: CategoryLists},
	{ID: "lists_delete", Method: "DELETE", Path: "/api/lists", Name: "Delete List", Description: "Remove shopping list permanently", Category: CategoryLists},
	{ID: "categories_get", Method: "GET", Path: "/api/categories", Name: "List Categories", Description: "Get all product categories", Category: CategoryCategories},
	{ID: "categories_post", Method: "POST", Path: "/api/categories", Name: "Create Category", Description: "Add new product category", Category: CategoryCategories},
	{ID: "categories_patch", Method: "PATCH", Path: "/api/categories", Name: "Update Category", Description: "Modify existing category", Category: CategoryCategories},
	{ID: "categories_delete", Method: "DELETE", Path: "/api/categories", Name: "Delete Category", Description: "Remove category permanently", Category: CategoryCategories},
	{ID: "stats_get", Method: "GET", Path: "/api/stats", Name: "Database Statistics", Description: "Get database usage statistics", Category: CategoryAdmin},
	{ID: "api_keys_get", Method: "GET", Path: "/api/api-keys", Name: "List API Keys", Description: "View all API keys (admin only)", Category: CategoryAdmin},
	{ID: "api_keys_post", Method: "POST", Path: "/api/api-keys", Name: "Create API Key", Description: "Generate new API key (admin only)", Category: CategoryAdmin},
	{ID: "api_keys_patch", Method: "PATCH", Path: "/api/api-keys/{id}", Name: "Toggle API Key", Description: "Enable/disable API key", Category: CategoryAdmin},
	{ID: "api_keys_delete", Method: "DELETE", Path: "/api/api-keys/{id}", Name: "Delete API Key", Description: "Remove API key permanently", Category: CategoryAdmin},
	{ID: "api_keys_usage_get", Method: "GET", Path: "/api/api-keys/{id}/usage", Name: "API Key Usage", Description: "View detailed usage statistics for API key", Category: CategoryAdmin},
	{ID: "endpoints_get", Method: "GET", Path: "/api/endpoints", Name: "List Endpoints", Description: "Get all available API endpoints", Category: CategoryAdmin},
	{ID: "endpoints_available_get", Method: "GET", Path: "/api/endpoints/available", Name: "Available Endpoints", Description: "Get endpoints for permission configuration", Category: CategoryAdmin},
	{ID: "endpoints_status_get", Method: "GET", Path: "/api/endpoints/status", Name: "Endpoints Status", Description: "Get endpoint availability status", Category: CategoryAdmin},
	{ID: "endpoints_configure_post", Method: "POST", Path: "/api/endpoints/configure", Name: "Configure Endpoints", Description: "Configure endpoint settings", Category: CategoryAdmin},
	{ID: "logs_get", Method: "GET", Path: "/api/logs", Name: "Access Logs", Description: "View API access logs (admin only)", Category: CategoryAdmin},
	{ID: "database_info_get", Method: "GET", Path: "/api/database/info", Name: "Database Info", Description: "Get database structure and info", Category: CategoryDatabase},
	{ID: "database_analyze_get", Method: "GET", Path: "/api/database/analyze", Name: "Database Analysis", Description: "Analyze database performance", Category: CategoryDatabase},
	{ID: "database_test_get", Method: "GET", Path: "/api/database/test/{type}", Name: "Database Tests", Description: "Run database connectivity and performance tests", Category: CategoryDatabase},
	{ID: "stats_detailed_get", Method: "GET", Path: "/api/stats/detailed", Name: "Detailed Statistics", Description: "Get comprehensive system statistics for monitoring", Category: CategoryMonitoring},
	{ID: "ping_google_get", Method: "GET", Path: "/api/ping/google", Name: "Google Ping Test", Description: "Test connectivity to Google DNS (8.8.8.8)", Category: CategoryMonitoring},
	{ID: "ping_cloudflare_get", Method: "GET", Path: "/api/ping/cloudflare", Name: "Cloudflare Ping Test", Description: "Test connectivity to Cloudflare DNS (1.1.1.1)", Category: CategoryMonitoring},
	{ID: "ping_frontend_get", Method: "GET", Path: "/api/ping/frontend", Name: "Frontend Ping Test", Description: "Test connectivity between backend and frontend", Category: CategoryMonitoring},
	{ID: "ping_backend_get", Method: "GET", Path: "/api/ping/backend", Name: "Backend Ping Test", Description: "Test connectivity to main backend server (port 4000)", Category: CategoryMonitoring},
	{ID: "frontend_status_get", Method: "GET", Path: "/api/frontend/status", Name: "Frontend Status", Description: "Check if frontend server is running", Category: CategoryMonitoring},
	{ID: "captcha_get", Method: "GET", Path: "/api/captcha", Name: "Generate Captcha", Description: "Generate captcha for registration", Category: CategoryAuth},
	{ID: "register_post", Method: "POST", Path: "/api/register", Name: "User Registration", Description: "Register new user account", Category: CategoryAuth},
	{ID: "login_post", Method: "POST", Path: "/api/login", Name: "User Login", Description: "Authenticate user and get JWT token", Category: CategoryAuth},
	{ID: "logout_post", Method: "POST", Path: "/api/logout", Name: "User Logout", Description: "Logout user and invalidate token", Category: CategoryAuth},
	{ID: "user_profile_get", Method: "GET", Path: "/api/user/profile", Name: "User Profile", Description: "Get current user profile information", Category: CategoryUsers},
	{ID: "change_password_post", Method: "POST", Path: "/api/change-password", Name: "Change Password", Description: "Change user password", Category: CategoryUsers},
	{ID: "change_username_post", Method: "POST", Path: "/api/change-username", Name: "Change Username", Description: "Change username", Category: CategoryUsers},
	{ID: "lists_uuid_delete", Method: "DELETE", Path: "/api/lists/{uuid}", Name: "Delete Specific List", Description: "Delete shopping list by UUID", Category: CategoryLists},
	{ID: "list_articles_get", Method: "GET", Path: "/api/lists/{listUuid}/articles", Name: "List Articles", Description: "Get all articles from specific list", Category: CategoryArticles},
	{ID: "list_articles_post", Method: "POST", Path: "/api/lists/{listUuid}/articles", Name: "Add Article to List", Description: "Add new article to specific list", Category: CategoryArticles},
	{ID: "articles_uuid_put", Method: "PUT", Path: "/api/articles/{uuid}", Name: "Update Article", Description: "Update article by UUID", Category: CategoryArticles},
	{ID: "articles_uuid_delete", Method: "DELETE", Path: "/api/articles/{uuid}", Name: "Delete Article", Description: "Delete article by UUID", Category: CategoryArticles},
	{ID: "articles_history_get", Method: "GET", Path: "/api/articles/history", Name: "Articles History", Description: "Get purchase history of articles", Category: CategoryArticles},
	{ID: "favorites_get", Method: "GET", Path: "/api/favorites", Name: "List Favorites", Description: "Get user favorite articles", Category: CategoryFavorites},
	{ID: "favorites_post", Method: "POST", Path: "/api/favorites", Name: "Add Favorite", Description: "Add article to favorites", Category: CategoryFavorites},
	{ID: "favorites_uuid_delete", Method: "DELETE", Path: "/api/favorites/{uuid}", Name: "Remove Favorite", Description: "Remove article from favorites", Category: CategoryFavorites},
	{ID: "standard_articles_get", Method: "GET", Path: "/api/standard-articles", Name: "Standard Articles", Description: "Get predefined standard articles", Category: CategoryArticles},
	{ID: "standard_articles_post", Method: "POST", Path: "/api/standard-articles", Name: "Create Standard Article", Description: "Add new standard article template", Category: CategoryArticles},
	{ID: "standard_articles_delete", Method: "DELETE", Path: "/api/standard-articles/{id}", Name: "Delete Standard Article", Description: "Remove standard article template", Category: CategoryArticles},
	{ID: "uptime_get", Method: "GET", Path: "/api/uptime", Name: "Server Uptime", Description: "Get backend server uptime information", Category: CategoryMonitoring},
}
