// Package main library circulation API.
//
// @title           Book Lending API
// @version         1.0
// @description     Library circulation service (books, loans, members).
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"log/slog"
	"os"

	"booklending/app/echoServer"
	authctrl "booklending/app/echoServer/controller/auth"
	bookctrl "booklending/app/echoServer/controller/book"
	loanctrl "booklending/app/echoServer/controller/loan"
	userctrl "booklending/app/echoServer/controller/user"
	"booklending/app/echoServer/validation"
	"booklending/config"
	bookrepo "booklending/repository/book"
	loanrepo "booklending/repository/loan"
	sessionrepo "booklending/repository/session"
	userrepo "booklending/repository/user"
	authsvc "booklending/service/auth"
	booksvc "booklending/service/book"
	loansvc "booklending/service/loan"
	usersvc "booklending/service/user"
	"booklending/util/database"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	goredis "github.com/redis/go-redis/v9"
	echoSwagger "github.com/swaggo/echo-swagger"
)

func main() {

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	ctx := context.Background()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	// DB
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// Redis (session registry)
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer rdb.Close()

	// repos
	ur := userrepo.New(db)
	br := bookrepo.New(db)
	lr := loanrepo.New(db)
	sr := sessionrepo.New(rdb, cfg.SessionTTL)

	// services
	as := authsvc.New(ur, sr, cfg.JWTSecret, cfg.SessionTTL)
	bs := booksvc.New(br, log)
	ls := loansvc.New(lr, log)
	us := usersvc.New(ur)

	// periodic overdue sweep
	sweeper := loansvc.NewSweeper(ls, cfg.SweepInterval, log)
	go sweeper.Run(ctx)

	// controllers
	v := validator.New()
	authC := &authctrl.Controller{Svc: as, V: v, Log: log}
	bookC := &bookctrl.Controller{Svc: bs, V: v, Log: log}
	loanC := &loanctrl.Controller{Svc: ls, V: v, Log: log}
	userC := &userctrl.Controller{Svc: us, V: v, Log: log}

	// echo
	e := echo.New()
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]any{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Auth: authC,
		Book: bookC,
		Loan: loanC,
		User: userC,

		JWTSecret: cfg.JWTSecret,
		Sessions:  sr,
	})

	log.Info("starting server", "port", cfg.Port, "sweep_interval", cfg.SweepInterval.String())

	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
