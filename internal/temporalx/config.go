package temporalx

import (
	"time"

	"github.com/yungbote/dineops-backend/internal/platform/envutil"
)

type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	AutoRegisterNamespace bool
	RetentionDays         int

	DialTimeout    time.Duration
	DialMaxWait    time.Duration
	DialBackoff    time.Duration
	DialBackoffMax time.Duration
}

// Enabled reports whether a Temporal frontend is configured. Without one the
// outbox is drained by the in-process worker pool.
func (c Config) Enabled() bool { return c.Address != "" }

func (c Config) mTLS() bool {
	return c.ClientCertPath != "" || c.ClientKeyPath != "" || c.ClientCAPath != ""
}

func LoadConfig() Config {
	return Config{
		Address:   envutil.String("TEMPORAL_ADDRESS", ""),
		Namespace: envutil.String("TEMPORAL_NAMESPACE", "dineops"),
		TaskQueue: envutil.String("TEMPORAL_TASK_QUEUE", "dineops-outbox"),

		ClientCertPath: envutil.String("TEMPORAL_CLIENT_CERT_PATH", ""),
		ClientKeyPath:  envutil.String("TEMPORAL_CLIENT_KEY_PATH", ""),
		ClientCAPath:   envutil.String("TEMPORAL_CLIENT_CA_PATH", ""),

		AutoRegisterNamespace: envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false),
		RetentionDays:         clampInt(envutil.Int("TEMPORAL_NAMESPACE_RETENTION_DAYS", 7), 1, 365),

		DialTimeout:    envutil.Seconds("TEMPORAL_DIAL_TIMEOUT_SECONDS", 5),
		DialMaxWait:    envutil.Seconds("TEMPORAL_DIAL_MAX_WAIT_SECONDS", 60),
		DialBackoff:    envutil.Millis("TEMPORAL_DIAL_BACKOFF_MS", 250),
		DialBackoffMax: envutil.Millis("TEMPORAL_DIAL_BACKOFF_MAX_MS", 5000),
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
