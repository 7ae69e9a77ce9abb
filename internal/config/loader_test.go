package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/convrelay/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.AuditPolicy, convey.ShouldEqual, "debug")
				convey.So(cfg.Conversion.HashAllIdentifiers, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("CONVRELAY_ADDR", ":8080")
			_ = os.Setenv("CONVRELAY_AUDIT_POLICY", "always")
			_ = os.Setenv("CONVRELAY_CONVERSION_CUSTOMER_ID", "123-456-7890")
			_ = os.Setenv("CONVRELAY_CONVERSION_CONVERSION_ACTION", "987654321")
			_ = os.Setenv("CONVRELAY_CONVERSION_HASH_ALL_IDENTIFIERS", "false")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.AuditPolicy, convey.ShouldEqual, "always")
				convey.So(cfg.Conversion.CustomerID, convey.ShouldEqual, "123-456-7890")
				convey.So(cfg.Conversion.ConversionAction, convey.ShouldEqual, "987654321")
				convey.So(cfg.Conversion.HashAllIdentifiers, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
audit_policy: never
redis_url: "redis://localhost:6379/0"
kafka_brokers:
  - "localhost:9092"
conversion:
  customer_id: "111-222-3333"
  conversion_action: "42"
  own_credentials: true
  developer_token: "dev-token"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("CONVRELAY_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.AuditPolicy, convey.ShouldEqual, "never")
				convey.So(cfg.RedisURL, convey.ShouldEqual, "redis://localhost:6379/0")
				convey.So(cfg.KafkaBrokers, convey.ShouldResemble, []string{"localhost:9092"})
				convey.So(cfg.Conversion.CustomerID, convey.ShouldEqual, "111-222-3333")
				convey.So(cfg.Conversion.ConversionAction, convey.ShouldEqual, "42")
				convey.So(cfg.Conversion.OwnCredentials, convey.ShouldBeTrue)
				convey.So(cfg.Conversion.DeveloperToken, convey.ShouldEqual, "dev-token")
				convey.So(cfg.Conversion.HashAllIdentifiers, convey.ShouldBeTrue) // from defaults
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
conversion:
  customer_id: "111-222-3333"
  conversion_action: "42"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("CONVRELAY_CONFIG", tmpFile)
			_ = os.Setenv("CONVRELAY_ADDR", ":8080")
			_ = os.Setenv("CONVRELAY_CONVERSION_CUSTOMER_ID", "999-888-7777")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")                          // Overridden by env
				convey.So(cfg.Conversion.CustomerID, convey.ShouldEqual, "999-888-7777") // Overridden by env
				convey.So(cfg.Conversion.ConversionAction, convey.ShouldEqual, "42")     // From file
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			invalidYaml := `invalid: yaml: content: [`
			tmpFile := createTempConfigFile(invalidYaml)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("CONVRELAY_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("CONVRELAY_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("CONVRELAY_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an unknown audit policy", func() {
			_ = os.Setenv("CONVRELAY_AUDIT_POLICY", "sometimes")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with partial YAML file", func() {
			yamlContent := `
conversion:
  gclid: "test-click-id"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("CONVRELAY_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should merge with defaults for missing fields", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Conversion.GCLID, convey.ShouldEqual, "test-click-id") // From file
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")                     // From defaults
				convey.So(cfg.AuditTopic, convey.ShouldEqual, "conversion-audit")    // From defaults
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"CONVRELAY_CONFIG",
		"CONVRELAY_ADDR",
		"CONVRELAY_AUDIT_POLICY",
		"CONVRELAY_CONVERSION_CUSTOMER_ID",
		"CONVRELAY_CONVERSION_CONVERSION_ACTION",
		"CONVRELAY_CONVERSION_HASH_ALL_IDENTIFIERS",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "convrelay-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
