package catalog

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const sampleJSON = `[
  {"provider_id": 1, "provider_name": "BetterHealth", "suburb": "Epping",
   "service_categories": ["Speech Therapy"], "phone": "02 9000 1001", "email": null},
  {"provider_id": 2, "provider_name": "Westside Podiatry", "suburb": "Blacktown",
   "service_categories": ["Podiatry"], "phone": null, "email": null, "active": false}
]`

type stubS3 struct {
	bucket, key string
	body        string
	err         error
}

func (s *stubS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	s.bucket = aws.ToString(in.Bucket)
	s.key = aws.ToString(in.Key)
	if s.err != nil {
		return nil, s.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(s.body))}, nil
}

func TestParseDefaultsActiveAndContact(t *testing.T) {
	c, err := Parse(strings.NewReader(sampleJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	p, _ := c.Get(1)
	if !p.Active {
		t.Error("expected missing active flag to default to true")
	}
	if p.Contact == nil || p.Contact.Phone != "02 9000 1001" || p.Contact.Email != "" {
		t.Errorf("unexpected contact %+v", p.Contact)
	}
	p2, _ := c.Get(2)
	if p2.Active || p2.Contact != nil {
		t.Errorf("expected inactive provider without contact, got %+v", p2)
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	if _, err := Parse(strings.NewReader(`{"provider_id":`)); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestLoaderReadsLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.json")
	if err := os.WriteFile(path, []byte(sampleJSON), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	c, err := NewLoader(nil).Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 providers, got %d", c.Len())
	}
}

func TestLoaderReadsS3Object(t *testing.T) {
	client := &stubS3{body: sampleJSON}
	c, err := NewLoader(client).Load(context.Background(), "s3://lifemap-config/catalog/providers.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if client.bucket != "lifemap-config" || client.key != "catalog/providers.json" {
		t.Fatalf("unexpected object %s/%s", client.bucket, client.key)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 providers, got %d", c.Len())
	}
}

func TestLoaderErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := NewLoader(nil).Load(ctx, " "); err == nil {
		t.Error("expected error for blank source")
	}
	if _, err := NewLoader(nil).Load(ctx, "s3://bucket/key.json"); err == nil {
		t.Error("expected error without s3 client")
	}
	boom := errors.New("access denied")
	if _, err := NewLoader(&stubS3{err: boom}).Load(ctx, "s3://bucket/key.json"); !errors.Is(err, boom) {
		t.Errorf("expected wrapped s3 error, got %v", err)
	}
	if _, err := NewLoader(nil).Load(ctx, filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		in     string
		bucket string
		key    string
		ok     bool
	}{
		{"s3://b/k.json", "b", "k.json", true},
		{"s3://b/dir/k.json", "b", "dir/k.json", true},
		{"s3://b", "", "", false},
		{"s3:///k", "", "", false},
		{"data/providers.json", "", "", false},
	}
	for _, tt := range tests {
		bucket, key, ok := parseS3URI(tt.in)
		if bucket != tt.bucket || key != tt.key || ok != tt.ok {
			t.Errorf("parseS3URI(%q) = %q %q %v", tt.in, bucket, key, ok)
		}
	}
}
