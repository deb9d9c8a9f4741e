package config

import (
	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database *dbConfig
	Service  *svcConfig
	Models   *modelConfig
	Canvas   *canvasConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"grader"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address  string `envconfig:"GRADER_ADDRESS" default:":3443"`
	BaseUrl  string `envconfig:"GRADER_BASE_URL" default:"https://localhost:3443"`
	LogLevel string `envconfig:"GRADER_LOG_LEVEL" default:"info"`
	Auth     Auth
}

type modelConfig struct {
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIModel  string `envconfig:"GRADER_OPENAI_MODEL" default:"gpt-4o-mini"`
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY" default:""`
	GeminiModel  string `envconfig:"GRADER_GEMINI_MODEL" default:"gemini-2.0-flash-lite"`

	// Character budgets bounding prompt cost. The review budget is smaller
	// because the reviewer also carries the rendered grade in its prompt.
	MaxSubmissionChars int `envconfig:"GRADER_MAX_SUBMISSION_CHARS" default:"15000"`
	MaxReviewChars     int `envconfig:"GRADER_MAX_REVIEW_CHARS" default:"10000"`
}

type canvasConfig struct {
	BaseUrl  string `envconfig:"CANVAS_BASE_URL" default:""`
	Token    string `envconfig:"CANVAS_TOKEN" default:""`
	CourseID string `envconfig:"CANVAS_COURSE_ID" default:""`
}

type Auth struct {
	AuthenticationType string `envconfig:"GRADER_AUTH" default:""`
	LocalPrivateKey    string `envconfig:"GRADER_PRIVATE_KEY" default:""`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}
