package remote

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectTaggingAPI is the slice of the blob store client the pipeline uses.
type ObjectTaggingAPI interface {
	GetObjectTagging(ctx context.Context, params *s3.GetObjectTaggingInput, optFns ...func(*s3.Options)) (*s3.GetObjectTaggingOutput, error)
}

// ObjectTags reads object tags from the blob store.
type ObjectTags struct {
	Client ObjectTaggingAPI
}

// Get returns the object's tags keyed by tag key.
func (o *ObjectTags) Get(ctx context.Context, bucket, key string) (map[string]string, error) {
	out, err := o.Client.GetObjectTagging(ctx, &s3.GetObjectTaggingInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, Classify(err, "s3://"+bucket+"/"+key)
	}
	tags := make(map[string]string, len(out.TagSet))
	for _, tag := range out.TagSet {
		tags[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	return tags, nil
}
