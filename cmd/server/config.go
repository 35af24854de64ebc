package main

import (
	"fmt"
	"math"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/timeshards/timeshards/internal/email"
	"github.com/timeshards/timeshards/internal/krypto"
)

// httpConfig is the configuration for the HTTP server.
type httpConfig struct {
	addr            string
	readTimeout     time.Duration
	writeTimeout    time.Duration
	idleTimeout     time.Duration
	shutdownTimeout time.Duration
}

// authConfig is the configuration for the identity workflow.
type authConfig struct {
	csrfKey          krypto.Key
	sessionKey       krypto.Key
	secureCookie     bool
	resetTokenExpiry time.Duration
	resetThrottle    time.Duration
}

// emailConfig is the configuration for outgoing email. Without a
// Postmark server token, emails are written to the log instead.
type emailConfig struct {
	from                  email.Address
	postmarkAPIURL        *url.URL
	postmarkServerToken   krypto.Secret
	postmarkMessageStream string
}

// oauthConfig is the settings for one third-party login provider. A
// provider without a client id is not registered.
type oauthConfig struct {
	clientID     string
	clientSecret krypto.Secret
}

// config is the configuration for the server command.
type config struct {
	http    httpConfig
	dbFile  string
	baseURL string
	auth    authConfig
	email   emailConfig
	weibo   oauthConfig
	qq      oauthConfig
	payKey  krypto.Secret
}

// defaultConfig returns a config with sane default values. The secret
// keys have no defaults, they must come from the environment.
func defaultConfig() config {
	postmarkURL, err := url.Parse("https://api.postmarkapp.com")
	if err != nil {
		panic(err)
	}

	return config{
		http: httpConfig{
			addr:            ":8888",
			readTimeout:     time.Second * 5,
			writeTimeout:    time.Second * 10,
			idleTimeout:     time.Second * 120,
			shutdownTimeout: time.Second * 15,
		},
		dbFile:  "timeshards.db",
		baseURL: "http://localhost:8888",
		auth: authConfig{
			secureCookie:     true,
			resetTokenExpiry: time.Minute * 30,
			resetThrottle:    time.Minute * 10,
		},
		email: emailConfig{
			from:                  "noreply@localhost",
			postmarkAPIURL:        postmarkURL,
			postmarkMessageStream: "outbound",
		},
	}
}

// envMap maps environment variable names to fields in the config struct.
var envMap = map[string]func(v string, c *config) error{
	"HTTP_ADDR": func(v string, c *config) error {
		c.http.addr = v
		return nil
	},
	"HTTP_READ_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.readTimeout, 0, math.MaxInt64)
	},
	"HTTP_WRITE_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.writeTimeout, 0, math.MaxInt64)
	},
	"HTTP_IDLE_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.idleTimeout, 0, math.MaxInt64)
	},
	"HTTP_SHUTDOWN_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.shutdownTimeout, 0, math.MaxInt64)
	},
	"DB_FILE": func(v string, c *config) error {
		c.dbFile = v
		return nil
	},
	"BASE_URL": func(v string, c *config) error {
		u, err := url.Parse(v)
		if err != nil {
			return err
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("base URL needs a http or https scheme, got %q", u.Scheme)
		}
		c.baseURL = v
		return nil
	},
	"CSRF_KEY": func(v string, c *config) error {
		return confKey(v, &c.auth.csrfKey)
	},
	"SESSION_KEY": func(v string, c *config) error {
		return confKey(v, &c.auth.sessionKey)
	},
	"SECURE_COOKIE": func(v string, c *config) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.auth.secureCookie = b
		return nil
	},
	"RESET_TOKEN_EXPIRY": func(v string, c *config) error {
		return confDuration(v, &c.auth.resetTokenExpiry, time.Minute, math.MaxInt64)
	},
	"RESET_THROTTLE": func(v string, c *config) error {
		return confDuration(v, &c.auth.resetThrottle, 0, math.MaxInt64)
	},
	"EMAIL_FROM": func(v string, c *config) error {
		addr, err := email.ParseAddress(v)
		if err != nil {
			return err
		}
		c.email.from = addr
		return nil
	},
	"POSTMARK_API_URL": func(v string, c *config) error {
		u, err := url.Parse(v)
		if err != nil {
			return err
		}
		c.email.postmarkAPIURL = u
		return nil
	},
	"POSTMARK_SERVER_TOKEN": func(v string, c *config) error {
		c.email.postmarkServerToken = krypto.NewSecret(v)
		return nil
	},
	"POSTMARK_MESSAGE_STREAM": func(v string, c *config) error {
		c.email.postmarkMessageStream = v
		return nil
	},
	"WEIBO_CLIENT_ID": func(v string, c *config) error {
		c.weibo.clientID = v
		return nil
	},
	"WEIBO_CLIENT_SECRET": func(v string, c *config) error {
		c.weibo.clientSecret = krypto.NewSecret(v)
		return nil
	},
	"QQ_CLIENT_ID": func(v string, c *config) error {
		c.qq.clientID = v
		return nil
	},
	"QQ_CLIENT_SECRET": func(v string, c *config) error {
		c.qq.clientSecret = krypto.NewSecret(v)
		return nil
	},
	"PAY_NOTIFY_KEY": func(v string, c *config) error {
		c.payKey = krypto.NewSecret(v)
		return nil
	},
}

// requiredEnvKeys have no safe default, they must come from the
// environment.
var requiredEnvKeys = []string{"CSRF_KEY", "SESSION_KEY"}

// configFromEnv returns a config with values from the environment. It falls
// back to default values for any missing environment variables.
//
// It does a best effort to validate provided values, so that mistakes are
// caught ASAP. However, there is no guarantee that the returned config
// is valid and will work.
func configFromEnv() (config, error) {
	c := defaultConfig()

	seen := make(map[string]bool)
	for key, mf := range envMap {
		if val, ok := os.LookupEnv(key); ok {
			if err := mf(val, &c); err != nil {
				return c, fmt.Errorf("invalid env variable %s: %w", key, err)
			}
			seen[key] = true
		}
	}

	for _, key := range requiredEnvKeys {
		if !seen[key] {
			return c, fmt.Errorf("missing required env variable %s", key)
		}
	}

	return c, nil
}

// confDuration attempts to parse v into tgt and checks if the result is in
// the provided range (inclusive).
func confDuration(v string, tgt *time.Duration, min, max time.Duration) error {
	dur, err := time.ParseDuration(v)
	if err != nil {
		return err
	}

	if dur < min || dur > max {
		return fmt.Errorf("duration %s not in range [%s, %s] (inclusive)", dur, min, max)
	}

	*tgt = dur

	return nil
}

// confKey parses a hex encoded 32 byte key into tgt.
func confKey(v string, tgt *krypto.Key) error {
	key, err := krypto.ParseKey(v)
	if err != nil {
		return err
	}

	*tgt = key

	return nil
}
