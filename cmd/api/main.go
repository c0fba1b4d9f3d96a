package main

import (
	"fmt"
	"net/http"
	"os"

	"citygate/internal/config"
	"citygate/internal/database"
	"citygate/internal/handlers"
	"citygate/internal/logger"
	"citygate/internal/middleware"
	"citygate/internal/services"
	"citygate/internal/totp"
	"citygate/internal/validator"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "citygate/internal/docs" // Import swagger docs
)

// @title           CityGate API
// @version         1.0
// @description     CityGate is the identity and access service of the CityGate smart-city administrative platform: signup, MFA-protected login, session management and password recovery.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Redis backs the login throttle counters
	redisClient := redis.NewClient(&redis.Options{
		Addr:     appConfig.RedisAddr,
		Password: appConfig.RedisPassword,
	})

	// Initialize services
	db := dbManager.DB()
	totpEngine := totp.NewEngine(appConfig.TOTPIssuer)
	userService := services.NewUserService(db)
	mfaService := services.NewMfaService(db, totpEngine, userService)
	authService := services.NewAuthService(db, userService, mfaService)
	resetService := services.NewPasswordResetService(db, userService, authService, services.NewLogOTPSender())
	auditService := services.NewAuditService(db)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, auditService)
	mfaHandler := handlers.NewMfaHandler(mfaService, auditService)
	passwordHandler := handlers.NewPasswordHandler(resetService, auditService)

	// Initialize Gin router
	validator.Register()
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Local authentication routes
	localauth := router.Group("/localauth")
	localauth.POST("/signup", authHandler.Signup)
	localauth.POST("/login",
		middleware.LoginThrottle(redisClient, appConfig.LoginThrottleWindow),
		authHandler.Login)
	localauth.POST("/forgot-password", passwordHandler.ForgotPassword)
	localauth.POST("/verify-otp", passwordHandler.VerifyOtp)
	localauth.POST("/reset-password", passwordHandler.ResetPassword)

	// Bearer-authenticated routes
	protected := localauth.Group("/")
	protected.Use(middleware.AuthMiddleware())
	protected.GET("/getSessions", authHandler.GetSessions)
	protected.POST("/refreshToken", authHandler.RefreshToken)
	protected.POST("/activateMFA", mfaHandler.ActivateMFA)
	protected.POST("/deactivateMFA", mfaHandler.DeactivateMFA)
	protected.GET("/logout", authHandler.Logout)

	log.Infof("Starting CityGate auth server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
