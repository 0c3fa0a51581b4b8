package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ErrEmptyRequired meldet eine gesetzte, aber leere Pflichtvariable.
var ErrEmptyRequired = errors.New("required key is empty")

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"4242"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// Quellen
	RxNavBaseURL          string `envconfig:"RXNAV_BASE_URL" default:"https://rxnav.nlm.nih.gov/REST"`
	PubChemBaseURL        string `envconfig:"PUBCHEM_BASE_URL" default:"https://pubchem.ncbi.nlm.nih.gov/rest/pug"`
	OpenFDABaseURL        string `envconfig:"OPENFDA_BASE_URL" default:"https://api.fda.gov"`
	OpenFDAAPIKey         string `envconfig:"OPENFDA_API_KEY"`
	ChEMBLBaseURL         string `envconfig:"CHEMBL_BASE_URL" default:"https://www.ebi.ac.uk/chembl/api/data"`
	ClinicalTrialsBaseURL string `envconfig:"CLINICALTRIALS_BASE_URL" default:"https://clinicaltrials.gov/api/v2"`

	PubMedBaseURL string `envconfig:"PUBMED_BASE_URL" default:"https://eutils.ncbi.nlm.nih.gov/entrez/eutils"`
	PubMedAPIKey  string `envconfig:"PUBMED_API_KEY"`
	PubMedEmail   string `envconfig:"PUBMED_EMAIL"`
	PubMedTool    string `envconfig:"PUBMED_TOOL" default:"pharma-deck"`
	PMCIDConvURL  string `envconfig:"PMC_IDCONV_URL" default:"https://www.ncbi.nlm.nih.gov/pmc/utils/idconv/v1.0/"`

	EuropePMCBaseURL string `envconfig:"EUROPEPMC_BASE_URL" default:"https://www.ebi.ac.uk/europepmc/webservices/rest"`
	// Unpaywall für freie Volltext-Links der Studien (optional)
	UnpaywallBaseURL string `envconfig:"UNPAYWALL_BASE_URL" default:"https://api.unpaywall.org/v2"`
	UnpaywallEmail   string `envconfig:"UNPAYWALL_EMAIL"`

	// pubmed oder europepmc
	LiteratureProvider string `envconfig:"LITERATURE_PROVIDER" default:"pubmed"`

	// Retry/Backoff des Fetch-Clients
	FetchMaxRetries   int           `envconfig:"FETCH_MAX_RETRIES" default:"2"`
	FetchInitialDelay time.Duration `envconfig:"FETCH_INITIAL_DELAY" default:"500ms"`
	FetchTimeout      time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s"`
	// Requests pro Sekunde je Quelle, 0 = unbegrenzt
	PubMedRateLimit  float64 `envconfig:"PUBMED_RATE_LIMIT" default:"3"`
	OpenFDARateLimit float64 `envconfig:"OPENFDA_RATE_LIMIT" default:"4"`
	ChEMBLRateLimit  float64 `envconfig:"CHEMBL_RATE_LIMIT" default:"5"`

	MaxStudies  int `envconfig:"MAX_STUDIES" default:"15"`
	MaxTargets  int `envconfig:"MAX_TARGETS" default:"25"`
	MaxTrials   int `envconfig:"MAX_TRIALS" default:"20"`
	MaxProducts int `envconfig:"MAX_PRODUCTS" default:"30"`

	// Optionale KI-Extraktion der Pharmakokinetik
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel   string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`

	// Archiv für Card-Snapshots (optional)
	S3Key    string `envconfig:"S3_KEY"`
	S3Secret string `envconfig:"S3_SECRET"`
	S3URL    string `envconfig:"S3_URL"`
	S3Region string `envconfig:"S3_REGION" default:"eu-central-1"`
	S3Bucket string `envconfig:"S3_BUCKET"`

	CronSchedule   string `envconfig:"CRON_SCHEDULE" default:"*/15 * * * *"`
	QueueBatchSize int    `envconfig:"QUEUE_BATCH_SIZE" default:"50"`
	WorkerPoolSize int    `envconfig:"WORKER_POOL_SIZE" default:"4"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// ArchiveEnabled meldet, ob alle S3-Parameter für das Snapshot-Archiv gesetzt sind.
func (c *Config) ArchiveEnabled() bool {
	return c.S3Key != "" && c.S3Secret != "" && c.S3URL != "" && c.S3Bucket != ""
}

// UseEuropePMC meldet, ob Europe PMC statt PubMed als Literaturquelle dient.
func (c *Config) UseEuropePMC() bool {
	return strings.EqualFold(strings.TrimSpace(c.LiteratureProvider), "europepmc")
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return &c, err
	}
	return &c, c.validate()
}

// validate prüft Pflichtwerte, die envconfig auch leer durchlässt.
func (c *Config) validate() error {
	required := []struct{ key, value string }{
		{"DB_HOST", c.DBHost},
		{"DB_USER", c.DBUser},
		{"DB_NAME", c.DBName},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%w: %s", ErrEmptyRequired, r.key)
		}
	}
	return nil
}
