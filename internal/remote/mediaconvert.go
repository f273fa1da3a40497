package remote

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert/types"
)

// MediaConvertAPI is the slice of the transcoder client the pipeline uses.
type MediaConvertAPI interface {
	GetJobTemplate(ctx context.Context, params *mediaconvert.GetJobTemplateInput, optFns ...func(*mediaconvert.Options)) (*mediaconvert.GetJobTemplateOutput, error)
	CreateJob(ctx context.Context, params *mediaconvert.CreateJobInput, optFns ...func(*mediaconvert.Options)) (*mediaconvert.CreateJobOutput, error)
}

// JobClient fetches templates and submits transcode jobs.
type JobClient struct {
	Client MediaConvertAPI
}

// Template fetches a named job template.
func (c *JobClient) Template(ctx context.Context, name string) (*types.JobTemplate, error) {
	out, err := c.Client.GetJobTemplate(ctx, &mediaconvert.GetJobTemplateInput{Name: aws.String(name)})
	if err != nil {
		return nil, Classify(err, "job_template/"+name)
	}
	return out.JobTemplate, nil
}

// Submit creates the job and returns it.
func (c *JobClient) Submit(ctx context.Context, input *mediaconvert.CreateJobInput) (*types.Job, error) {
	out, err := c.Client.CreateJob(ctx, input)
	if err != nil {
		return nil, Classify(err, "job/"+aws.ToString(input.JobTemplate))
	}
	return out.Job, nil
}
