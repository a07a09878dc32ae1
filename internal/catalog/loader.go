package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// record mirrors the providers.json file format.
type record struct {
	ProviderID        int      `json:"provider_id"`
	ProviderName      string   `json:"provider_name"`
	Suburb            string   `json:"suburb"`
	ServiceCategories []string `json:"service_categories"`
	Phone             *string  `json:"phone"`
	Email             *string  `json:"email"`
	Active            *bool    `json:"active"`
}

type s3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Loader reads a catalog from a local file or an s3://bucket/key object.
type Loader struct {
	s3 s3GetObjectAPI
}

// NewLoader returns a loader. s3Client may be nil when only local files are used.
func NewLoader(s3Client s3GetObjectAPI) *Loader {
	return &Loader{s3: s3Client}
}

// Load fetches and parses the catalog at source.
func (l *Loader) Load(ctx context.Context, source string) (*Catalog, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, errors.New("catalog: source required")
	}

	if bucket, key, ok := parseS3URI(source); ok {
		if l.s3 == nil {
			return nil, fmt.Errorf("catalog: s3 client not configured for %s", source)
		}
		out, err := l.s3.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, fmt.Errorf("catalog: get %s: %w", source, err)
		}
		defer out.Body.Close()
		return Parse(out.Body)
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", source, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes providers.json content into a validated catalog. Entries
// without an explicit active flag are active.
func Parse(r io.Reader) (*Catalog, error) {
	var records []record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("catalog: decode providers: %w", err)
	}

	providers := make([]Provider, 0, len(records))
	for _, rec := range records {
		p := Provider{
			ID:                rec.ProviderID,
			Name:              rec.ProviderName,
			Locality:          rec.Suburb,
			ServiceCategories: rec.ServiceCategories,
			Active:            rec.Active == nil || *rec.Active,
		}
		phone, email := deref(rec.Phone), deref(rec.Email)
		if phone != "" || email != "" {
			p.Contact = &Contact{Phone: phone, Email: email}
		}
		providers = append(providers, p)
	}
	return New(providers)
}

func parseS3URI(source string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(source, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
