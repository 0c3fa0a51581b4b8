package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"pharma-deck/config"
	"pharma-deck/models"
)

// ErrArchiveDisabled meldet fehlende S3-Parameter.
var ErrArchiveDisabled = errors.New("s3 archive is not configured")

// ObjectStore ist der Teil des S3-Clients, den das Archiv braucht.
type ObjectStore interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// NewS3Client erstellt einen S3-Client für einen S3-kompatiblen Endpunkt.
func NewS3Client(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               cfg.S3URL,
				SigningRegion:     cfg.S3Region,
				HostnameImmutable: true,
			}, nil
		},
	)
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3Key, cfg.S3Secret, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg), nil
}

// Archive legt Card-Snapshots und Backups in einem Bucket ab.
type Archive struct {
	Client  ObjectStore
	Bucket  string
	BaseURL string
}

// NewArchive erstellt das Archiv aus der Konfiguration oder liefert ErrArchiveDisabled.
func NewArchive(ctx context.Context, cfg *config.Config) (*Archive, error) {
	if !cfg.ArchiveEnabled() {
		return nil, ErrArchiveDisabled
	}
	client, err := NewS3Client(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	return &Archive{Client: client, Bucket: cfg.S3Bucket, BaseURL: cfg.S3URL}, nil
}

// UploadFile lädt data unter key hoch und gibt den Link zurück.
func (a *Archive) UploadFile(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(a.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := a.Client.PutObject(ctx, input); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s", a.BaseURL, a.Bucket, key), nil
}

// CardKey ist der Objektschlüssel eines Snapshots: cards/<rxcui>/v<version>.json.
func CardKey(card *models.CompoundCard) string {
	return fmt.Sprintf("cards/%s/v%d.json", card.RxCUI, card.Version)
}

// PutCard legt eine Card-Version als JSON-Snapshot ab.
func (a *Archive) PutCard(ctx context.Context, card *models.CompoundCard) (string, error) {
	data, err := json.Marshal(card)
	if err != nil {
		return "", err
	}
	return a.UploadFile(ctx, CardKey(card), data, "application/json")
}

// BackupKey ist der Objektschlüssel eines Datenbank-Dumps zum Zeitpunkt t.
func BackupKey(t time.Time) string {
	return fmt.Sprintf("backups/backup-%s.sql.gz", t.UTC().Format("2006-01-02T15-04-05Z"))
}

// RotateBackups behält die keep neuesten Objekte unter prefix und löscht den Rest.
// Zurück kommt die Zahl der gelöschten Objekte.
func (a *Archive) RotateBackups(ctx context.Context, prefix string, keep int) (int, error) {
	output, err := a.Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.Bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return 0, fmt.Errorf("list backups: %w", err)
	}
	if len(output.Contents) <= keep {
		return 0, nil
	}

	objects := output.Contents
	sort.Slice(objects, func(i, j int) bool {
		return aws.ToTime(objects[i].LastModified).After(aws.ToTime(objects[j].LastModified))
	})

	var deleted int
	var errs []error
	for _, obj := range objects[keep:] {
		_, err := a.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(a.Bucket),
			Key:    obj.Key,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", aws.ToString(obj.Key), err))
			continue
		}
		deleted++
	}
	return deleted, errors.Join(errs...)
}
