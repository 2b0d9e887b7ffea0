package echoServer

import (
	"booklending/app/echoServer/controller/auth"
	"booklending/app/echoServer/controller/book"
	"booklending/app/echoServer/controller/loan"
	"booklending/app/echoServer/controller/user"
	"booklending/model"
	sessionrepo "booklending/repository/session"
	jwtutil "booklending/util/jwt"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

type C struct {
	Auth *auth.Controller
	Book *book.Controller
	Loan *loan.Controller
	User *user.Controller

	JWTSecret string
	Sessions  sessionrepo.Repo
}

func Register(e *echo.Echo, c C) {
	// Public
	pub := e.Group("/v1")
	pub.POST("/auth/register", c.Auth.Register)
	pub.POST("/auth/login", c.Auth.Login)

	// Catalog search is public; availability comes from the projector.
	pub.GET("/books", c.Book.Search)
	pub.GET("/books/:id", c.Book.Detail)

	// Auth
	authed := e.Group("/v1")
	authed.Use(echojwt.WithConfig(echojwt.Config{
		ParseTokenFunc: func(_ echo.Context, token string) (interface{}, error) {
			return jwtutil.ParseAuth(token, c.JWTSecret)
		},
	}))
	authed.Use(Identity(c.Sessions))

	staff := RequireRoles(model.RoleLibrarian, model.RoleAdmin)
	admin := RequireRoles(model.RoleAdmin)

	authed.POST("/auth/logout", c.Auth.Logout)
	authed.POST("/auth/logout-all", c.Auth.LogoutAll)
	authed.GET("/auth/profile", c.User.Profile)

	// Membership management
	authed.GET("/users", c.User.List, staff)
	authed.GET("/users/:id", c.User.Get, staff)
	authed.PUT("/users/:id", c.User.Update, staff)
	authed.DELETE("/users/:id", c.User.Delete, admin)
	authed.PUT("/users/:id/active", c.Auth.SetActive, admin)

	// Catalog writes
	authed.POST("/books", c.Book.Create, staff)
	authed.PUT("/books/:id", c.Book.Update, staff)
	authed.DELETE("/books/:id", c.Book.Delete, staff)
	authed.POST("/books/:id/restock", c.Book.Restock, staff)

	// Loans
	authed.POST("/loans", c.Loan.Create)
	authed.GET("/loans", c.Loan.List, staff)
	authed.GET("/loans/stats", c.Loan.Stats, staff)
	authed.GET("/loans/overdue", c.Loan.ListOverdue, staff)
	authed.POST("/loans/sweep-overdue", c.Loan.Sweep, staff)
	authed.GET("/loans/my", c.Loan.My)
	authed.GET("/loans/my-active", c.Loan.MyActive)
	authed.GET("/loans/user/:userId", c.Loan.ByUser)
	authed.GET("/loans/user/:userId/active", c.Loan.ActiveByUser)
	authed.GET("/loans/:id", c.Loan.Get)
	authed.POST("/loans/:id/return", c.Loan.Return)
	authed.DELETE("/loans/:id", c.Loan.Remove, admin)
}
