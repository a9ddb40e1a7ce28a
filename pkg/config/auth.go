package config

// DefaultFirebaseCertsURL publishes the x509 certificates that sign Firebase ID tokens.
const DefaultFirebaseCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

// AuthConfig holds runtime configuration for the token verification server.
type AuthConfig struct {
	Environment                string
	Addr                       string
	FirebaseProjectID          string
	FirebaseServiceAccountPath string
	FirebaseCertsURL           string
	RedisAddr                  string
	RedisPassword              string
	RedisDB                    int
	CORSAllowedOrigins         []string
	RateLimitPerMinute         int
}

// LoadAuthConfig constructs an AuthConfig from environment variables.
func LoadAuthConfig() AuthConfig {
	return AuthConfig{
		Environment:                Environment(),
		Addr:                       GetString("AUTH_ADDR", ":3001"),
		FirebaseProjectID:          GetString("FIREBASE_PROJECT_ID", ""),
		FirebaseServiceAccountPath: GetString("FIREBASE_SERVICE_ACCOUNT_PATH", ""),
		FirebaseCertsURL:           GetString("FIREBASE_CERTS_URL", DefaultFirebaseCertsURL),
		RedisAddr:                  GetString("REDIS_ADDR", ""),
		RedisPassword:              GetString("REDIS_PASSWORD", ""),
		RedisDB:                    GetInt("REDIS_DB", 0),
		CORSAllowedOrigins:         GetList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		RateLimitPerMinute:         GetInt("AUTH_RATE_LIMIT_PER_MINUTE", 120),
	}
}
