package config_test

import (
	"context"
	"os"
	"testing"

	"github.com/guesswork/arbiter/internal/config"
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
				convey.So(cfg.Provider, convey.ShouldEqual, config.ProviderLocal)
				convey.So(cfg.EmbedDimensions, convey.ShouldEqual, 256)
				convey.So(cfg.MaxGuessesPerParticipant, convey.ShouldEqual, 64)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("ARBITER_ADDR", ":8080")
			_ = os.Setenv("ARBITER_PROVIDER", "ollama")
			_ = os.Setenv("ARBITER_MODEL", "nomic-embed-text")
			_ = os.Setenv("ARBITER_EMBED_CONCURRENCY", "4")
			_ = os.Setenv("ARBITER_EMBED_TIMEOUT_MS", "5000")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Provider, convey.ShouldEqual, config.ProviderOllama)
				convey.So(cfg.Model, convey.ShouldEqual, "nomic-embed-text")
				convey.So(cfg.EmbedConcurrency, convey.ShouldEqual, 4)
				convey.So(cfg.EmbedTimeoutMS, convey.ShouldEqual, 5000)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
provider: "openai"
openai_api_key: "sk-test"
model: "text-embedding-3-large"
embed_concurrency: 2
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("ARBITER_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.Provider, convey.ShouldEqual, config.ProviderOpenAI)
				convey.So(cfg.OpenAIAPIKey, convey.ShouldEqual, "sk-test")
				convey.So(cfg.Model, convey.ShouldEqual, "text-embedding-3-large")
				convey.So(cfg.EmbedConcurrency, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
provider: "ollama"
embed_timeout_ms: 3000
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("ARBITER_CONFIG", tmpFile)
			_ = os.Setenv("ARBITER_ADDR", ":8080") // This should override the file
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")               // Overridden by env
				convey.So(cfg.Provider, convey.ShouldEqual, "ollama")          // From file
				convey.So(cfg.EmbedTimeoutMS, convey.ShouldEqual, 3000)        // From file
				convey.So(cfg.EmbedDimensions, convey.ShouldEqual, 256)        // From defaults
				convey.So(cfg.MaxGuessesPerParticipant, convey.ShouldEqual, 64) // From defaults
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			invalidYaml := `invalid: yaml: content: [`
			tmpFile := createTempConfigFile(invalidYaml)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("ARBITER_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("ARBITER_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an unknown provider", func() {
			_ = os.Setenv("ARBITER_PROVIDER", "bogus")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "unknown provider")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When selecting openai without an API key", func() {
			_ = os.Setenv("ARBITER_PROVIDER", "openai")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "openai_api_key")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When selecting vertex without a project id", func() {
			_ = os.Setenv("ARBITER_PROVIDER", "vertex")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "vertex_project_id")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an invalid concurrency", func() {
			_ = os.Setenv("ARBITER_EMBED_CONCURRENCY", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "embed_concurrency")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// clearConfigEnvVars removes all ARBITER_ environment variables used in tests.
func clearConfigEnvVars() {
	for _, key := range []string{
		"ARBITER_CONFIG",
		"ARBITER_ADDR",
		"ARBITER_LOG_LEVEL",
		"ARBITER_PROVIDER",
		"ARBITER_MODEL",
		"ARBITER_EMBED_DIMENSIONS",
		"ARBITER_OPENAI_BASE_URL",
		"ARBITER_OPENAI_API_KEY",
		"ARBITER_OLLAMA_BASE_URL",
		"ARBITER_VERTEX_PROJECT_ID",
		"ARBITER_VERTEX_LOCATION",
		"ARBITER_VERTEX_CREDENTIALS_FILE",
		"ARBITER_EMBED_TIMEOUT_MS",
		"ARBITER_EMBED_CONCURRENCY",
		"ARBITER_MAX_GUESSES_PER_PARTICIPANT",
	} {
		_ = os.Unsetenv(key)
	}
}

// createTempConfigFile writes content to a temp YAML file and returns its path.
func createTempConfigFile(content string) string {
	f, err := os.CreateTemp("", "arbiter-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := f.WriteString(content); err != nil {
		panic(err)
	}
	_ = f.Close()
	return f.Name()
}
