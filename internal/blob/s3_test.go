package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type stubObject struct {
	data        []byte
	contentType string
	metadata    map[string]string
	modified    time.Time
}

// stubS3 implements s3API/s3PresignAPI against an in-memory object map.
type stubS3 struct {
	objects map[string]stubObject
}

func newStubS3() *stubS3 { return &stubS3{objects: make(map[string]stubObject)} }

func (c *stubS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	obj := stubObject{data: data, metadata: in.Metadata, modified: time.Now().UTC()}
	if in.ContentType != nil {
		obj.contentType = *in.ContentType
	}
	c.objects[*in.Key] = obj
	return &s3.PutObjectOutput{}, nil
}

func (c *stubS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	obj, ok := c.objects[*in.Key]
	if !ok {
		return nil, fmt.Errorf("NoSuchKey: %s", *in.Key)
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(obj.data)),
		ContentLength: aws.Int64(int64(len(obj.data))),
		ContentType:   aws.String(obj.contentType),
		Metadata:      obj.metadata,
		LastModified:  aws.Time(obj.modified),
	}, nil
}

func (c *stubS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	obj, ok := c.objects[*in.Key]
	if !ok {
		return nil, fmt.Errorf("NotFound: %s", *in.Key)
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.data))),
		ContentType:   aws.String(obj.contentType),
		Metadata:      obj.metadata,
		LastModified:  aws.Time(obj.modified),
	}, nil
}

func (c *stubS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(c.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (c *stubS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	out := &s3.ListObjectsV2Output{}
	for key, obj := range c.objects {
		if in.Prefix != nil && !strings.HasPrefix(key, *in.Prefix) {
			continue
		}
		out.Contents = append(out.Contents, s3types.Object{
			Key:          aws.String(key),
			Size:         aws.Int64(int64(len(obj.data))),
			LastModified: aws.Time(obj.modified),
		})
	}
	return out, nil
}

func (c *stubS3) PresignGetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return &v4.PresignedHTTPRequest{URL: "https://example.test/" + *in.Key}, nil
}

func newStubS3Store() (*S3Store, *stubS3) {
	stub := newStubS3()
	return &S3Store{client: stub, presign: stub, bucket: "test-bucket"}, stub
}

func TestS3StorePutIsCreateOnly(t *testing.T) {
	store, _ := newStubS3Store()
	ctx := context.Background()

	info, err := store.Put(ctx, "snapshots/a.json", strings.NewReader("{}"), PutOptions{ContentType: "application/json"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 2 || info.ContentType != "application/json" {
		t.Fatalf("info = %+v", info)
	}
	if _, err := store.Put(ctx, "snapshots/a.json", strings.NewReader("x"), PutOptions{}); err == nil {
		t.Fatal("overwrite accepted")
	}
}

func TestS3StoreGetAndList(t *testing.T) {
	store, _ := newStubS3Store()
	ctx := context.Background()

	for _, key := range []string{"snapshots/p1/a.json", "snapshots/p1/b.json", "snapshots/p2/c.json"} {
		if _, err := store.Put(ctx, key, strings.NewReader("{}"), PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	info, rc, err := store.Get(ctx, "snapshots/p1/a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "{}" || info.Size != 2 {
		t.Fatalf("body = %s, info = %+v", body, info)
	}

	infos, err := store.List(ctx, "snapshots/p1/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "snapshots/p1/a.json" {
		t.Fatalf("list = %+v", infos)
	}
}

func TestS3StorePresign(t *testing.T) {
	store, _ := newStubS3Store()
	u, err := store.PresignURL(context.Background(), "snapshots/a.json", SignedURLOptions{})
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if u != "https://example.test/snapshots/a.json" {
		t.Fatalf("url = %s", u)
	}
	if _, err := store.PresignURL(context.Background(), "k", SignedURLOptions{Method: "PUT"}); err != ErrUnsupported {
		t.Fatalf("PUT presign err = %v, want ErrUnsupported", err)
	}
}

func TestNewS3RequiresBucket(t *testing.T) {
	if _, err := NewS3(context.Background(), S3Config{}); err == nil {
		t.Fatal("missing bucket accepted")
	}
}
