package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/blagajna/internal/auth"
	"github.com/erazemk/blagajna/internal/ledger"
	"github.com/erazemk/blagajna/internal/model"
	"github.com/erazemk/blagajna/internal/report"
	"github.com/erazemk/blagajna/internal/store"
)

// NewRouter creates the API router with all endpoints registered. Report
// days and sale date filters are interpreted in loc.
func NewRouter(db *sqlx.DB, issuer *auth.Issuer, loc *time.Location) http.Handler {
	if loc == nil {
		loc = time.UTC
	}

	stock := store.NewStock(db)
	sales := store.NewSales(db)
	ldg := ledger.New(db, stock, sales, slog.Default())

	authHandler := &AuthHandler{DB: db, Issuer: issuer}
	usersHandler := &UsersHandler{DB: db}
	productsHandler := &ProductsHandler{DB: db}
	variantsHandler := &VariantsHandler{DB: db, Stock: stock}
	salesHandler := &SalesHandler{Ledger: ldg, Sales: sales, Location: loc}
	reportsHandler := &ReportsHandler{Reporter: report.New(sales, stock, loc)}

	authMW := AuthMiddleware(issuer, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)

	mux := http.NewServeMux()

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Catalog: read (all roles), write (manager+).
	mux.Handle("GET /api/products", authMW(http.HandlerFunc(productsHandler.List)))
	mux.Handle("POST /api/products", authMW(requireManager(http.HandlerFunc(productsHandler.Create))))
	mux.Handle("GET /api/products/{id}", authMW(http.HandlerFunc(productsHandler.Get)))
	mux.Handle("PUT /api/products/{id}/image", authMW(requireManager(http.HandlerFunc(productsHandler.UploadImage))))
	mux.Handle("GET /api/products/{id}/image", authMW(http.HandlerFunc(productsHandler.GetImage)))
	mux.Handle("POST /api/products/{id}/variants", authMW(requireManager(http.HandlerFunc(variantsHandler.Create))))

	// Variants and stock.
	mux.Handle("GET /api/variants/{id}", authMW(http.HandlerFunc(variantsHandler.Get)))
	mux.Handle("DELETE /api/variants/{id}", authMW(requireManager(http.HandlerFunc(variantsHandler.Deactivate))))
	mux.Handle("POST /api/variants/{id}/stock", authMW(requireManager(http.HandlerFunc(variantsHandler.AdjustStock))))
	mux.Handle("GET /api/variants/{id}/movements", authMW(http.HandlerFunc(variantsHandler.Movements)))

	// Sales: record and read (all roles), corrections (manager+), delete (admin).
	mux.Handle("POST /api/sales", authMW(http.HandlerFunc(salesHandler.Create)))
	mux.Handle("GET /api/sales", authMW(http.HandlerFunc(salesHandler.List)))
	mux.Handle("GET /api/sales/{id}", authMW(http.HandlerFunc(salesHandler.Get)))
	mux.Handle("PUT /api/sales/{id}/note", authMW(http.HandlerFunc(salesHandler.UpdateNote)))
	mux.Handle("POST /api/sales/{id}/cancel", authMW(requireManager(http.HandlerFunc(salesHandler.Cancel))))
	mux.Handle("PUT /api/sales/{id}/lines/{lineID}", authMW(requireManager(http.HandlerFunc(salesHandler.UpdateLine))))
	mux.Handle("PUT /api/sales/{id}/payments/{paymentID}", authMW(requireManager(http.HandlerFunc(salesHandler.UpdatePayment))))
	mux.Handle("DELETE /api/sales/{id}", authMW(requireAdmin(http.HandlerFunc(salesHandler.Delete))))

	// Reports (manager+).
	mux.Handle("GET /api/reports/daily", authMW(requireManager(http.HandlerFunc(reportsHandler.Daily))))
	mux.Handle("GET /api/reports/monthly", authMW(requireManager(http.HandlerFunc(reportsHandler.Monthly))))
	mux.Handle("GET /api/reports/sellers", authMW(requireManager(http.HandlerFunc(reportsHandler.Sellers))))
	mux.Handle("GET /api/reports/payments", authMW(requireManager(http.HandlerFunc(reportsHandler.Payments))))
	mux.Handle("GET /api/reports/low-stock", authMW(requireManager(http.HandlerFunc(reportsHandler.LowStock))))

	return mux
}
