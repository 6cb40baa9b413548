package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/elostora/shop/internal/access"
	"github.com/elostora/shop/internal/accounts"
	"github.com/elostora/shop/internal/config"
	"github.com/elostora/shop/internal/db"
	"github.com/elostora/shop/internal/models"
	"github.com/elostora/shop/internal/security"
	internalsettings "github.com/elostora/shop/internal/settings"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InitRequest contains parameters for initial system setup.
type InitRequest struct {
	DatabaseType     string `json:"database_type"`
	DatabaseHost     string `json:"database_host"`
	DatabasePort     int    `json:"database_port"`
	DatabaseUser     string `json:"database_user"`
	DatabasePassword string `json:"database_password"`
	DatabaseName     string `json:"database_name"`
	DatabasePath     string `json:"database_path"`
	DatabaseSSLMode  string `json:"database_ssl_mode"`
	SiteName         string `json:"site_name"`
	AdminUsername    string `json:"admin_username" binding:"required"`
	AdminEmail       string `json:"admin_email"`
	AdminPassword    string `json:"admin_password" binding:"required"`
}

// InitStatusResponse reports whether initialization is complete.
type InitStatusResponse struct {
	Initialized bool `json:"initialized"`
}

// ConfigExists reports whether the config file exists at the path.
func ConfigExists(configPath string) bool {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return false
	}
	return true
}

// defaultSQLitePath is the default SQLite database file name.
const defaultSQLitePath = "shop.db"

// BuildDSN builds a database DSN from the init request.
func BuildDSN(req InitRequest) (string, error) {
	switch strings.ToLower(strings.TrimSpace(req.DatabaseType)) {
	case "", "postgres":
		sslMode := req.DatabaseSSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			req.DatabaseUser,
			req.DatabasePassword,
			req.DatabaseHost,
			req.DatabasePort,
			req.DatabaseName,
			sslMode,
		), nil
	case "sqlite":
		path := strings.TrimSpace(req.DatabasePath)
		if path == "" {
			path = defaultSQLitePath
		}
		return buildSQLiteDSN(path), nil
	default:
		return "", fmt.Errorf("unsupported database type")
	}
}

// buildSQLiteDSN constructs a SQLite DSN with default parameters.
func buildSQLiteDSN(path string) string {
	dsn := strings.TrimSpace(path)
	if dsn == "" {
		dsn = defaultSQLitePath
	}
	if !strings.HasPrefix(strings.ToLower(dsn), "file:") {
		dsn = "file:" + dsn
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + strings.Join([]string{
		"_busy_timeout=5000",
		"_journal_mode=WAL",
		"_foreign_keys=on",
		"_synchronous=NORMAL",
	}, "&")
}

// ParseDSN reverses BuildDSN for postgres URLs and SQLite file DSNs. The
// password is never returned; the bool reports whether one was present.
func ParseDSN(dsn string) (InitRequest, bool, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return InitRequest{}, false, errors.New("app: empty dsn")
	}
	if strings.HasPrefix(strings.ToLower(dsn), "file:") {
		path, _, _ := strings.Cut(dsn[len("file:"):], "?")
		path = strings.TrimSpace(path)
		if path == "" {
			path = defaultSQLitePath
		}
		return InitRequest{DatabaseType: "sqlite", DatabasePath: path}, false, nil
	}

	u, errParse := url.Parse(dsn)
	if errParse != nil {
		return InitRequest{}, false, fmt.Errorf("app: parse dsn: %w", errParse)
	}
	if scheme := strings.ToLower(u.Scheme); scheme != "postgres" && scheme != "postgresql" {
		return InitRequest{}, false, fmt.Errorf("app: unsupported dsn scheme %q", u.Scheme)
	}
	req := InitRequest{
		DatabaseType:    "postgres",
		DatabaseHost:    u.Hostname(),
		DatabasePort:    5432,
		DatabaseName:    strings.TrimPrefix(u.Path, "/"),
		DatabaseSSLMode: u.Query().Get("sslmode"),
	}
	if rawPort := u.Port(); rawPort != "" {
		port, errPort := strconv.Atoi(rawPort)
		if errPort != nil {
			return InitRequest{}, false, fmt.Errorf("app: parse dsn port: %w", errPort)
		}
		req.DatabasePort = port
	}
	if req.DatabaseSSLMode == "" {
		req.DatabaseSSLMode = "disable"
	}
	passwordSet := false
	if u.User != nil {
		req.DatabaseUser = u.User.Username()
		_, passwordSet = u.User.Password()
	}
	return req, passwordSet, nil
}

// setupPrefill is what the setup page may show of the running connection.
type setupPrefill struct {
	Locked              bool   `json:"locked"`
	DatabaseType        string `json:"database_type,omitempty"`
	DatabaseHost        string `json:"database_host,omitempty"`
	DatabasePort        int    `json:"database_port,omitempty"`
	DatabaseUser        string `json:"database_user,omitempty"`
	DatabaseName        string `json:"database_name,omitempty"`
	DatabaseSSLMode     string `json:"database_ssl_mode,omitempty"`
	DatabasePath        string `json:"database_path,omitempty"`
	DatabasePasswordSet bool   `json:"database_password_set"`
}

func newSetupPrefill(dsn string) setupPrefill {
	req, passwordSet, errParse := ParseDSN(dsn)
	if errParse != nil {
		return setupPrefill{Locked: true}
	}
	return setupPrefill{
		Locked:              true,
		DatabaseType:        req.DatabaseType,
		DatabaseHost:        req.DatabaseHost,
		DatabasePort:        req.DatabasePort,
		DatabaseUser:        req.DatabaseUser,
		DatabaseName:        req.DatabaseName,
		DatabaseSSLMode:     req.DatabaseSSLMode,
		DatabasePath:        req.DatabasePath,
		DatabasePasswordSet: passwordSet,
	}
}

// TestDatabaseConnection validates that the DSN can connect and ping.
func TestDatabaseConnection(dsn string) error {
	conn, err := db.Open(dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql db: %w", err)
	}
	defer func() {
		err = sqlDB.Close()
		if err != nil {
			log.Errorf("sql db close error: %v", err)
		}
	}()
	return sqlDB.Ping()
}

// minAdminPasswordLength is stricter than the customer minimum.
const minAdminPasswordLength = 6

// validateInitRequest normalizes and validates init input data.
func validateInitRequest(req *InitRequest) error {
	dbType := strings.ToLower(strings.TrimSpace(req.DatabaseType))
	if dbType == "" {
		dbType = "postgres"
	}
	req.DatabaseType = dbType

	switch dbType {
	case "postgres":
		if strings.TrimSpace(req.DatabaseHost) == "" {
			return fmt.Errorf("Database host is required")
		}
		if req.DatabasePort <= 0 {
			return fmt.Errorf("Invalid database port")
		}
		if strings.TrimSpace(req.DatabaseUser) == "" {
			return fmt.Errorf("Database username is required")
		}
		if strings.TrimSpace(req.DatabaseName) == "" {
			return fmt.Errorf("Database name is required")
		}
		if strings.TrimSpace(req.DatabasePassword) == "" {
			return fmt.Errorf("Database password is required")
		}
	case "sqlite":
		if strings.TrimSpace(req.DatabasePath) == "" {
			req.DatabasePath = defaultSQLitePath
		}
	default:
		return fmt.Errorf("Unsupported database type")
	}
	return validateAdminRequest(req)
}

// validateAdminRequest normalizes and validates the admin part of the init input.
func validateAdminRequest(req *InitRequest) error {
	req.SiteName = strings.TrimSpace(req.SiteName)
	if req.SiteName == "" {
		req.SiteName = internalsettings.DefaultSiteName
	}
	req.AdminUsername = strings.TrimSpace(req.AdminUsername)
	req.AdminEmail = strings.TrimSpace(req.AdminEmail)
	if req.AdminUsername == "" {
		return fmt.Errorf("Admin username is required")
	}
	if strings.TrimSpace(req.AdminPassword) == "" {
		return fmt.Errorf("Admin password is required")
	}
	if len(req.AdminPassword) < minAdminPasswordLength {
		return fmt.Errorf("Password must be at least %d characters", minAdminPasswordLength)
	}
	return nil
}

// configFile maps YAML fields for the generated config file.
type configFile struct {
	Host        string    `yaml:"host"`
	Port        int       `yaml:"port"`
	DatabaseDSN string    `yaml:"database-dsn"`
	JWT         jwtCfg    `yaml:"jwt"`
	Access      accessCfg `yaml:"access"`
}

// jwtCfg holds JWT settings for the generated config file.
type jwtCfg struct {
	Secret string `yaml:"secret"`
	Expiry string `yaml:"expiry"`
}

// accessCfg holds the reserved admin usernames for the generated config file.
type accessCfg struct {
	ReservedAdminUsernames []string `yaml:"reserved-admin-usernames"`
}

// generateJWTSecret creates a random JWT secret string.
func generateJWTSecret() string {
	secret, err := security.GenerateRandomString(32)
	if err != nil {
		return "change-me-to-a-secure-random-string"
	}
	return secret
}

// WriteConfigFile writes the initial config file to disk.
func WriteConfigFile(configPath string, dsn string, port int) error {
	cfg := configFile{
		Host:        "",
		Port:        port,
		DatabaseDSN: dsn,
		JWT: jwtCfg{
			Secret: generateJWTSecret(),
			Expiry: "720h",
		},
		Access: accessCfg{
			ReservedAdminUsernames: append([]string(nil), config.DefaultReservedAdminUsernames...),
		},
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(configPath)
	if errMkdir := os.MkdirAll(dir, 0755); errMkdir != nil {
		return fmt.Errorf("create config dir: %w", errMkdir)
	}

	if errWrite := os.WriteFile(configPath, data, 0600); errWrite != nil {
		return fmt.Errorf("write config file: %w", errWrite)
	}

	return nil
}

// CreateAdminUser creates the first admin account and seeds the site name.
func CreateAdminUser(ctx context.Context, dsn string, username, email, password, siteName string) error {
	conn, err := db.Open(dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	sqlDB, errSQL := conn.DB()
	if errSQL == nil {
		defer func() {
			if errClose := sqlDB.Close(); errClose != nil {
				log.Errorf("sql db close error: %v", errClose)
			}
		}()
	}

	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return fmt.Errorf("migrate database: %w", errMigrate)
	}
	return CreateAdminUserWithConn(ctx, conn, username, email, password, siteName)
}

// CreateAdminUserWithConn creates the first admin account, its profile and the
// managers group, then seeds the site name.
func CreateAdminUserWithConn(ctx context.Context, conn *gorm.DB, username, email, password, siteName string) error {
	if conn == nil {
		return fmt.Errorf("open database: nil connection")
	}
	if _, errGroup := access.EnsureManagersGroup(ctx, conn); errGroup != nil {
		return errGroup
	}
	admin, created, errAdmin := access.EnsureAdminAccount(ctx, conn, username, email, password)
	if errAdmin != nil {
		return errAdmin
	}
	if _, errProfile := accounts.EnsureProfile(ctx, conn, admin.ID); errProfile != nil {
		return errProfile
	}
	log.WithFields(log.Fields{"account_id": admin.ID, "created": created}).Info("admin account ensured")
	return upsertSiteNameSetting(conn, siteName)
}

// upsertSiteNameSetting stores the SITE_NAME setting in the database.
func upsertSiteNameSetting(conn *gorm.DB, siteName string) error {
	normalized := strings.TrimSpace(siteName)
	if normalized == "" {
		normalized = internalsettings.DefaultSiteName
	}
	payload, errMarshal := json.Marshal(normalized)
	if errMarshal != nil {
		return fmt.Errorf("db: marshal SITE_NAME setting: %w", errMarshal)
	}
	value := datatypes.JSON(payload)

	now := time.Now().UTC()
	res := conn.Model(&models.Setting{}).Where("key = ?", internalsettings.SiteNameKey).
		Updates(map[string]any{
			"value":      value,
			"updated_at": now,
		})
	if res.Error != nil {
		return fmt.Errorf("db: update SITE_NAME setting: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	setting := models.Setting{
		Key:       internalsettings.SiteNameKey,
		Value:     value,
		UpdatedAt: now,
	}
	if errCreate := conn.Create(&setting).Error; errCreate != nil {
		return fmt.Errorf("db: create SITE_NAME setting: %w", errCreate)
	}
	return nil
}

// ErrInitCompleted signals that initialization finished and the server should restart.
var ErrInitCompleted = errors.New("init completed")

// corsMiddleware enables permissive CORS for the init server.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// NewInitEngine builds the engine of the first-boot setup server.
// initDone is closed after a successful setup.
func NewInitEngine(configPath string, port int, initDone chan struct{}) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	engine.GET("/v0/init/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, InitStatusResponse{Initialized: ConfigExists(configPath)})
	})

	engine.POST("/v0/init/setup", func(c *gin.Context) {
		if ConfigExists(configPath) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "System already initialized"})
			return
		}

		var req InitRequest
		if errBind := c.ShouldBindJSON(&req); errBind != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errBind.Error()})
			return
		}
		if errValidate := validateInitRequest(&req); errValidate != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errValidate.Error()})
			return
		}

		dsn, errBuild := BuildDSN(req)
		if errBuild != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errBuild.Error()})
			return
		}
		if errTest := TestDatabaseConnection(dsn); errTest != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Database connection failed: %v", errTest)})
			return
		}
		if errWrite := WriteConfigFile(configPath, dsn, port); errWrite != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to write config: %v", errWrite)})
			return
		}
		if errAdmin := CreateAdminUser(c.Request.Context(), dsn, req.AdminUsername, req.AdminEmail, req.AdminPassword, req.SiteName); errAdmin != nil {
			if errRemove := os.Remove(configPath); errRemove != nil {
				log.Errorf("remove config file error: %v", errRemove)
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to create admin: %v", errAdmin)})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Initialization successful"})

		if initDone != nil {
			go func() {
				time.Sleep(500 * time.Millisecond)
				close(initDone)
			}()
		}
	})

	engine.NoRoute(func(c *gin.Context) {
		if ConfigExists(configPath) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "System initializing, please restart the server"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "System not initialized, POST /v0/init/setup"})
	})
	return engine
}

// RunInitServer starts the initialization server when config is missing.
func RunInitServer(ctx context.Context, cfg config.AppConfig, port int) error {
	gin.SetMode(gin.ReleaseMode)
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	initDone := make(chan struct{})
	engine := NewInitEngine(configPath, port, initDone)

	addr := fmt.Sprintf(":%d", port)
	log.Infof("starting init server on %s (config not found at %s)", addr, configPath)

	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-initDone:
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			log.Errorf("init server shutdown error: %v", errShutdown)
		}
	}()

	if errListen := srv.ListenAndServe(); errListen != nil && !errors.Is(errListen, http.ErrServerClosed) {
		return errListen
	}

	select {
	case <-initDone:
		return ErrInitCompleted
	default:
		return nil
	}
}
