package main

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/julienschmidt/httprouter"

	"github.com/Gurjant002/api-g-books/internal/auth"
	"github.com/Gurjant002/api-g-books/internal/book"
	"github.com/Gurjant002/api-g-books/internal/config"
	"github.com/Gurjant002/api-g-books/internal/user"
	"github.com/Gurjant002/api-g-books/package/client/database"
	"github.com/Gurjant002/api-g-books/package/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Log.Debug("No .env file found")
	}

	cfg := config.GetConfig()

	logger.Log.Info("Starting database")
	db := database.Init(cfg)
	defer func(db *sqlx.DB) {
		if err := db.Close(); err != nil {
			logger.Log.Error("Can not close database")
		}
	}(db)

	tokens := auth.NewTokenManager(cfg.Key.SecretKey,
		time.Duration(cfg.Key.TokenTTLMinutes)*time.Minute)
	mw := auth.NewMiddleware(tokens)

	userStorage := user.NewStorage(db)
	userService := user.NewService(userStorage, tokens)

	bookStorage := book.NewStorage(db)
	bookService := book.NewService(bookStorage, userStorage)

	router := httprouter.New()
	user.NewHandler(userService, tokens, mw).Register(router)
	book.NewHandler(bookService, mw).Register(router)

	logger.Log.Info("Starting app")
	start(router, cfg)
}

func start(router *httprouter.Router, cfg *config.Config) {
	logger.Log.Info("Starting router")
	addr := fmt.Sprintf("%s:%s", cfg.Listen.BindIp, cfg.Listen.Port)

	listener, err := net.Listen(cfg.Listen.Type, addr)
	if err != nil {
		logger.Log.Fatal("Listener was not created: ", err)
	}
	logger.Log.Info("Listening ", addr)

	server := &http.Server{
		Handler:      router,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	if err := server.Serve(listener); err != nil {
		logger.Log.Fatal("Server stopped: ", err)
	}
}
