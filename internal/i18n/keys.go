// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess     = "success"
	KeyError       = "error"
	KeyRateLimited = "rate_limited"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthLogoutSuccess      = "auth.logout_success"
	KeyAuthRegisterSuccess    = "auth.register_success"
	KeyAuthPasswordReset      = "auth.password_reset"
	KeyAuthPasswordResetDone  = "auth.password_reset_success"

	// User profile
	KeyUserProfileUpdated     = "user.profile_updated"
	KeyUserPreferencesUpdated = "user.preferences_updated"
	KeyUserPasswordChanged    = "user.password_changed"
	KeyUserAccountDeleted     = "user.account_deleted"
	KeyUserNotFound           = "user.not_found"
	KeyUserStatusUpdated      = "user.status_updated"

	// Gemstones
	KeyGemstoneCreated    = "gemstone.created"
	KeyGemstoneUpdated    = "gemstone.updated"
	KeyGemstoneDeleted    = "gemstone.deleted"
	KeyGemstoneNotFound   = "gemstone.not_found"
	KeyGemstoneOutOfStock = "gemstone.out_of_stock"
	KeyGemstonePriceSet   = "gemstone.price_updated"
	KeyGemstoneStockSet   = "gemstone.stock_updated"

	// Cart
	KeyCartItemAdded   = "cart.item_added"
	KeyCartItemUpdated = "cart.item_updated"
	KeyCartItemRemoved = "cart.item_removed"
	KeyCartCleared     = "cart.cleared"
	KeyCartEmpty       = "cart.empty"
	KeyCartItemMissing = "cart.item_not_found"

	// Orders
	KeyOrderPlaced            = "order.placed"
	KeyOrderNotFound          = "order.not_found"
	KeyOrderCancelled         = "order.cancelled"
	KeyOrderStatusUpdated     = "order.status_updated"
	KeyOrderInvalidTransition = "order.invalid_transition"
	KeyOrderPaymentConfirmed  = "order.payment_confirmed"

	// Favorites, chat, activity
	KeyFavoriteAdded   = "favorite.added"
	KeyFavoriteRemoved = "favorite.removed"
	KeyChatSent        = "chat.sent"
	KeyChatMarkedRead  = "chat.marked_read"

	// Currency
	KeyCurrencyUnsupported = "currency.unsupported"
	KeyCurrencyRefreshed   = "currency.refreshed"
	KeyCurrencyUnavailable = "currency.unavailable"

	// Inventory
	KeyInventoryAlertResolved = "inventory.alert_resolved"
	KeyInventoryAlertNotFound = "inventory.alert_not_found"
	KeyInventoryChecked       = "inventory.checked"

	// Import / export
	KeyImportCompleted = "import.completed"
	KeyImportFailed    = "import.failed"

	// Media
	KeyMediaVideoQueued = "media.video_queued"
	KeyMediaUnavailable = "media.unavailable"

	// Admin
	KeyAdminAccessDenied = "admin.access_denied"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"

	// File Upload
	KeyFileUploadSuccess = "file.upload_success"
	KeyFileUploadFailed  = "file.upload_failed"
)
