package config_test

import (
	"testing"

	"github.com/okian/convrelay/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.AuditPolicy, convey.ShouldEqual, "debug")
			convey.So(cfg.AuditTopic, convey.ShouldEqual, "conversion-audit")
			convey.So(cfg.RedisTTLSeconds, convey.ShouldEqual, 3300)
			convey.So(cfg.Conversion.HashAllIdentifiers, convey.ShouldBeTrue)
			convey.So(cfg.Conversion.OwnCredentials, convey.ShouldBeFalse)
		})
	})
}
