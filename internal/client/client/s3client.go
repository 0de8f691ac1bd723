package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/cryptox"
)

// S3API is the subset of *s3.Client the store uses.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) S3API {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// DefaultS3Lookback is used when S3Options.Lookback is not positive.
const DefaultS3Lookback = 2 * time.Minute

type S3Options struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	// Lookback widens every pull below the checkpoint by this much.
	Lookback time.Duration
}

// S3Client stores each record as users/<user>/<kind>/<id>.json. There is no
// server clock, so ModifiedAt comes from the writing device's clock, kept
// strictly increasing within the process. Devices disagree on time and a
// write can land after a later-stamped one, so Pull re-reads the lookback
// window below since; reconciling a record twice is a no-op.
type S3Client struct {
	api      S3API
	bucket   string
	now      func() time.Time
	lookback time.Duration

	mu       sync.Mutex
	lastMod  time.Time
	pageSize int32
}

func NewS3Client(ctx context.Context, opts S3Options) (*S3Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey, opts.SecretKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	api := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = true
	})

	c := newS3Client(api, opts.Bucket, time.Now)
	c.lookback = opts.Lookback
	if c.lookback <= 0 {
		c.lookback = DefaultS3Lookback
	}
	return c, nil
}

func newS3Client(api S3API, bucket string, now func() time.Time) *S3Client {
	return &S3Client{api: api, bucket: bucket, now: now, pageSize: 1000}
}

func userPrefix(userID string) string {
	return path.Join("users", userID) + "/"
}

func objectKey(userID string, kind models.Kind, id string) string {
	return path.Join("users", userID, string(kind), id+".json")
}

func (c *S3Client) stamp() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC()
	if !t.After(c.lastMod) {
		t = c.lastMod.Add(time.Microsecond)
	}
	c.lastMod = t
	return t
}

type storedObject struct {
	record models.Record
	etag   *string
}

// get returns (nil, nil) when the object does not exist.
func (c *S3Client) get(ctx context.Context, key string) (*storedObject, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(c.bucket), Key: aws.String(key)})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, nil
		}
		return nil, &common.TransportError{Op: "s3 get " + key, Err: err}
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &common.TransportError{Op: "s3 read " + key, Err: err}
	}

	var rec models.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadRecord, key, err)
	}
	return &storedObject{record: rec, etag: out.ETag}, nil
}

func (c *S3Client) listKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	p := s3.NewListObjectsV2Paginator(c.api, &s3.ListObjectsV2Input{
		Bucket:  aws.String(c.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(c.pageSize),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, &common.TransportError{Op: "s3 list " + prefix, Err: err}
		}
		for _, obj := range page.Contents {
			if k := aws.ToString(obj.Key); strings.HasSuffix(k, ".json") {
				keys = append(keys, k)
			}
		}
	}
	return keys, nil
}

func (c *S3Client) Pull(ctx context.Context, userID string, since time.Time) (*PullResult, error) {
	after := since
	if !since.IsZero() {
		after = since.Add(-c.lookback)
	}
	return c.changedAfter(ctx, userID, after)
}

// changedAfter lists the user's records with ModifiedAt strictly after
// after, oldest first.
func (c *S3Client) changedAfter(ctx context.Context, userID string, after time.Time) (*PullResult, error) {
	keys, err := c.listKeys(ctx, userPrefix(userID))
	if err != nil {
		return nil, err
	}

	res := &PullResult{}
	for _, key := range keys {
		obj, err := c.get(ctx, key)
		if err != nil {
			return nil, err
		}
		if obj == nil || !obj.record.ModifiedAt.After(after) {
			continue
		}
		res.Records = append(res.Records, obj.record)
	}
	sort.SliceStable(res.Records, func(i, j int) bool {
		return res.Records[i].ModifiedAt.Before(res.Records[j].ModifiedAt)
	})
	return res, nil
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return true
		}
	}
	return false
}

// Push applies the server's acceptance rule per object. Writes are
// conditional on the ETag read, so a concurrent writer turns into a
// conflict rather than a lost update.
func (c *S3Client) Push(ctx context.Context, userID string, since time.Time, records []models.Record) (*PushResult, error) {
	res := &PushResult{Cursor: since}
	accepted := make(map[string]time.Time, len(records))

	for _, r := range records {
		key := objectKey(userID, r.Kind, r.ID)
		stored, err := c.get(ctx, key)
		if err != nil {
			return nil, err
		}

		if stored != nil {
			sr := stored.record
			if r.Version == sr.Version && cryptox.Equal(r.Fingerprint, sr.Fingerprint) {
				res.Accepted = append(res.Accepted, Ack{Kind: r.Kind, ID: r.ID, AcceptedVersion: sr.Version, ModifiedAt: sr.ModifiedAt})
				accepted[key] = sr.ModifiedAt
				continue
			}
			if r.Version <= sr.Version {
				res.Conflicts = append(res.Conflicts, common.Conflict{Kind: string(r.Kind), ID: r.ID, RemoteVersion: sr.Version})
				continue
			}
		}

		r.ModifiedAt = c.stamp()
		body, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", key, err)
		}

		in := &s3.PutObjectInput{
			Bucket:      aws.String(c.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String("application/json"),
		}
		if stored == nil {
			in.IfNoneMatch = aws.String("*")
		} else {
			in.IfMatch = stored.etag
		}

		if _, err := c.api.PutObject(ctx, in); err != nil {
			if isPreconditionFailed(err) {
				remote := int64(0)
				if stored != nil {
					remote = stored.record.Version
				}
				res.Conflicts = append(res.Conflicts, common.Conflict{Kind: string(r.Kind), ID: r.ID, RemoteVersion: remote})
				continue
			}
			return nil, &common.TransportError{Op: "s3 put " + key, Err: err}
		}

		res.Accepted = append(res.Accepted, Ack{Kind: r.Kind, ID: r.ID, AcceptedVersion: r.Version, ModifiedAt: r.ModifiedAt})
		accepted[key] = r.ModifiedAt
	}

	if len(res.Conflicts) > 0 || len(accepted) == 0 {
		return res, nil
	}

	// Advance the cursor only when everything changed since the client's
	// checkpoint is what it just wrote.
	changed, err := c.changedAfter(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	cursor := since
	for _, rec := range changed.Records {
		mod, ok := accepted[objectKey(userID, rec.Kind, rec.ID)]
		if !ok || !mod.Equal(rec.ModifiedAt) {
			return res, nil
		}
		if rec.ModifiedAt.After(cursor) {
			cursor = rec.ModifiedAt
		}
	}
	res.Cursor = cursor
	return res, nil
}

func (c *S3Client) Ping(ctx context.Context) error {
	if _, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)}); err != nil {
		return &common.TransportError{Op: "s3 ping", Err: err}
	}
	return nil
}

func (c *S3Client) Close() error { return nil }
