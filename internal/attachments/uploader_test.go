package attachments

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	data, _ := io.ReadAll(params.Body)
	f.body = string(data)
	return &s3.PutObjectOutput{}, f.err
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "submissions/user-1/abc-my-solution.zip", ObjectKey("user-1", "My Solution.ZIP", "abc"))
	assert.Equal(t, "submissions/user-1/abc-file", ObjectKey("user-1", "???", "abc"))
	assert.Equal(t, "submissions/user-1/abc-report", ObjectKey("user-1", "report", "abc"))
}

func TestUpload(t *testing.T) {
	fake := &fakePutter{}
	u := NewUploaderWithClient(fake, "uploads", "https://cdn.example.com/")

	ref, err := u.Upload(context.Background(), "user-1", "design.pdf", "application/pdf", 5, strings.NewReader("hello"))
	require.NoError(t, err)

	assert.Equal(t, "uploads", aws.ToString(fake.input.Bucket))
	assert.Equal(t, "application/pdf", aws.ToString(fake.input.ContentType))
	assert.Equal(t, "hello", fake.body)

	key := aws.ToString(fake.input.Key)
	assert.True(t, strings.HasPrefix(key, "submissions/user-1/"))
	assert.True(t, strings.HasSuffix(key, "-design.pdf"))

	assert.Equal(t, "https://cdn.example.com/"+key, ref.URL)
	assert.Equal(t, "design.pdf", ref.Name)
	assert.Equal(t, int64(5), ref.Size)
}

func TestUpload_Errors(t *testing.T) {
	fake := &fakePutter{err: errors.New("access denied")}
	u := NewUploaderWithClient(fake, "uploads", "https://cdn.example.com")

	_, err := u.Upload(context.Background(), "user-1", "a.txt", "", 0, strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = u.Upload(context.Background(), "user-1", "a.txt", "", 1, strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	assert.Equal(t, "application/octet-stream", aws.ToString(fake.input.ContentType))
}
