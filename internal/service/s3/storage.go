// storage.go
package s3

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// objectAPI: подмножество *s3.Client, которым пользуется Client
type objectAPI interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var _ objectAPI = (*s3.Client)(nil)

// ObjectKey строит уникальный ключ объекта вида
// "<prefix>/2024/03/<uuid>.pdf". Логическое имя влияет только на расширение.
func ObjectKey(prefix, logicalName string, now time.Time) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(logicalName, "\\", "/"))))
	if len(ext) > 16 || strings.ContainsAny(ext, " \t") {
		ext = ""
	}

	key := path.Join(now.UTC().Format("2006/01"), uuid.NewString()+ext)
	if prefix != "" {
		key = path.Join(prefix, key)
	}
	return key
}
