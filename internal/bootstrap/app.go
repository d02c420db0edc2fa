package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"esign-backend/internal/account"
	"esign-backend/internal/assembly"
	"esign-backend/internal/audit"
	googleauth "esign-backend/internal/auth"
	"esign-backend/internal/documents"
	"esign-backend/internal/notify"
	"esign-backend/internal/queue"
	"esign-backend/internal/shared/config"
	"esign-backend/internal/shared/server"
	"esign-backend/internal/shared/storage/db"
	"esign-backend/internal/shared/storage/object"
	localstore "esign-backend/internal/shared/storage/object/local"
	s3store "esign-backend/internal/shared/storage/object/s3"
	"esign-backend/internal/signatures"
	"esign-backend/internal/signingtokens"
	"esign-backend/internal/users"
)

const defaultSMTPPort = 465

// App holds shared dependencies for the API server and the worker.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client

	// Mailer delivers directly over SMTP, or to the log when SMTP is
	// not configured. Notifier is what request handlers send through
	// and is queue-backed when a notify queue is configured.
	Mailer   notify.Notifier
	Notifier notify.Notifier

	DocumentsRepo  documents.Repo
	SignaturesRepo signatures.Repo
	UsersRepo      users.Repo
	AuditRepo      audit.Repo

	Tokens        *signingtokens.Service
	AuditRecorder *audit.Recorder

	DocumentsService  *documents.Service
	SignaturesService *signatures.Service
	AccountService    *account.Service
	UsersService      *users.Service

	DocumentsHandler  *documents.Handler
	SignaturesHandler *signatures.Handler
	AccountHandler    *account.Handler
	UsersHandler      *users.Handler
	GoogleAuth        *googleauth.GoogleService
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:           app.Config,
		AccountHandler:   app.AccountHandler,
		DocumentHandler:  app.DocumentsHandler,
		SignatureHandler: app.SignaturesHandler,
		UserHandler:      app.UsersHandler,
		GoogleAuth:       app.GoogleAuth,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.NotifyQueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx)
}

func buildTokenStore(cfg config.Config, sqlDB *sql.DB) (signingtokens.Store, error) {
	switch cfg.TokenStoreType {
	case "redis":
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return nil, fmt.Errorf("TOKEN_STORE=redis requires REDIS_ADDR")
		}
		return signingtokens.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword), nil
	case "postgres":
		if sqlDB == nil {
			return nil, fmt.Errorf("TOKEN_STORE=postgres requires DATABASE_URL")
		}
		return &signingtokens.PGStore{DB: sqlDB}, nil
	default:
		return signingtokens.NewMemoryStore(), nil
	}
}

func buildMailer(cfg config.Config) notify.Notifier {
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		return notify.LogNotifier{}
	}
	port, err := strconv.Atoi(strings.TrimSpace(cfg.SMTPPort))
	if err != nil || port <= 0 {
		port = defaultSMTPPort
	}
	return &notify.SMTPNotifier{
		Host:     cfg.SMTPHost,
		Port:     port,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.SMTPFrom,
		Timeout:  cfg.SMTPTimeout,
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) error {
	var docRepo documents.Repo
	var sigRepo signatures.Repo
	var userRepo users.Repo
	var auditRepo audit.Repo

	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
		sigRepo = &signatures.PGRepo{DB: app.DB}
		userRepo = &users.PGRepo{DB: app.DB}
		auditRepo = &audit.PGRepo{DB: app.DB}
	} else {
		memDocs := documents.NewMemoryRepo()
		docRepo = memDocs
		sigRepo = signatures.NewMemoryRepo(memDocs)
		userRepo = users.NewMemoryRepo()
		auditRepo = audit.NewMemoryRepo()
	}

	tokenStore, err := buildTokenStore(app.Config, app.DB)
	if err != nil {
		return err
	}
	tokens := &signingtokens.Service{Store: tokenStore, TTL: app.Config.TokenTTL}
	recorder := &audit.Recorder{Repo: auditRepo}

	app.Mailer = buildMailer(app.Config)
	notifier := app.Mailer
	if app.Queue != nil {
		notifier = &notify.QueueNotifier{Client: app.Queue}
	}
	app.Notifier = notifier

	docSvc := &documents.Service{
		Repo:           docRepo,
		Users:          userRepo,
		Store:          app.Store,
		Tokens:         tokens,
		Notifier:       notifier,
		Audit:          recorder,
		SigningBaseURL: app.Config.SigningBaseURL,
		SenderName:     app.Config.SenderName,
	}

	sigSvc := &signatures.Service{
		Repo:      sigRepo,
		Docs:      docRepo,
		Users:     userRepo,
		Store:     app.Store,
		Tokens:    tokens,
		Assembler: &assembly.PDFAssembler{Store: app.Store},
		Notifier:  notifier,
		Audit:     recorder,
	}

	userSvc := users.NewService(userRepo)
	googleAuthSvc := googleauth.NewGoogleService(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
		userSvc,
	)

	app.DocumentsRepo = docRepo
	app.SignaturesRepo = sigRepo
	app.UsersRepo = userRepo
	app.AuditRepo = auditRepo
	app.Tokens = tokens
	app.AuditRecorder = recorder
	app.DocumentsService = docSvc
	app.SignaturesService = sigSvc
	app.AccountService = account.NewService(docRepo)
	app.UsersService = userSvc
	app.DocumentsHandler = documents.NewHandler(docSvc)
	app.SignaturesHandler = signatures.NewHandler(sigSvc, docSvc)
	app.AccountHandler = account.NewHandler(app.AccountService)
	app.UsersHandler = users.NewHandler(userSvc)
	app.GoogleAuth = googleAuthSvc

	if app.DocumentsHandler == nil || app.SignaturesHandler == nil || app.UsersHandler == nil {
		return errors.New("failed to initialize handlers")
	}

	return nil
}
