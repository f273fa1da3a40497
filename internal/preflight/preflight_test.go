package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert"
	mctypes "github.com/aws/aws-sdk-go-v2/service/mediaconvert/types"
	"github.com/aws/aws-sdk-go-v2/service/mediapackagevod"
	"github.com/aws/aws-sdk-go-v2/service/mediatailor"
	"github.com/aws/smithy-go"

	"fastchannels/internal/remote"
	"fastchannels/internal/testsupport"
)

func notFound() error {
	return &smithy.GenericAPIError{Code: "NotFoundException", Message: "missing"}
}

type fakeConvert struct {
	remote.MediaConvertAPI
	err error
}

func (f fakeConvert) GetJobTemplate(_ context.Context, in *mediaconvert.GetJobTemplateInput, _ ...func(*mediaconvert.Options)) (*mediaconvert.GetJobTemplateOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &mediaconvert.GetJobTemplateOutput{JobTemplate: &mctypes.JobTemplate{Name: in.Name}}, nil
}

type fakePackager struct {
	remote.MediaPackageAPI
	err error
}

func (f fakePackager) DescribePackagingGroup(context.Context, *mediapackagevod.DescribePackagingGroupInput, ...func(*mediapackagevod.Options)) (*mediapackagevod.DescribePackagingGroupOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &mediapackagevod.DescribePackagingGroupOutput{}, nil
}

type fakeTailor struct {
	remote.MediaTailorAPI
	missingSources map[string]bool
	channelErr     error
}

func (f fakeTailor) DescribeSourceLocation(context.Context, *mediatailor.DescribeSourceLocationInput, ...func(*mediatailor.Options)) (*mediatailor.DescribeSourceLocationOutput, error) {
	return &mediatailor.DescribeSourceLocationOutput{}, nil
}

func (f fakeTailor) DescribeChannel(context.Context, *mediatailor.DescribeChannelInput, ...func(*mediatailor.Options)) (*mediatailor.DescribeChannelOutput, error) {
	if f.channelErr != nil {
		return nil, f.channelErr
	}
	return &mediatailor.DescribeChannelOutput{}, nil
}

func (f fakeTailor) DescribeVodSource(_ context.Context, in *mediatailor.DescribeVodSourceInput, _ ...func(*mediatailor.Options)) (*mediatailor.DescribeVodSourceOutput, error) {
	if f.missingSources[aws.ToString(in.VodSourceName)] {
		return nil, notFound()
	}
	return &mediatailor.DescribeVodSourceOutput{}, nil
}

func staticCreds() aws.Config {
	return aws.Config{
		Region: "us-east-1",
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: "AKID", SecretAccessKey: "SECRET"}, nil
		}),
	}
}

func TestCheckDirectoryAccess(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		path string
		want bool
	}{
		{"temp dir", t.TempDir(), true},
		{"missing", filepath.Join(t.TempDir(), "nope"), false},
		{"file", file, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CheckDirectoryAccess("test", tt.path)
			if result.Passed != tt.want {
				t.Fatalf("Passed = %v, want %v (%s)", result.Passed, tt.want, result.Detail)
			}
			if result.Detail == "" {
				t.Fatal("expected non-empty detail")
			}
		})
	}
}

func TestCheckCredentials(t *testing.T) {
	if got := CheckCredentials(context.Background(), staticCreds()); !got.Passed {
		t.Fatalf("expected pass, got %s", got.Detail)
	}
	if got := CheckCredentials(context.Background(), aws.Config{Region: "us-east-1"}); got.Passed {
		t.Fatal("expected failure without a provider")
	}
	failing := aws.Config{
		Region: "us-east-1",
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{}, errors.New("no profile")
		}),
	}
	if got := CheckCredentials(context.Background(), failing); got.Passed || !strings.Contains(got.Detail, "no profile") {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestRunAllWithSchedulingEnabled(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithChannel("fast-channel"))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	env := Env{
		SDK:          staticCreds(),
		MediaConvert: fakeConvert{},
		MediaPackage: fakePackager{},
		MediaTailor:  fakeTailor{missingSources: map[string]bool{cfg.Scheduling.SlateVodSource: true}},
	}

	results := RunAll(context.Background(), cfg, env)
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}
	want := "State directory,AWS credentials,Job template,Packaging group,Source location,Channel,Slate VOD source"
	if strings.Join(names, ",") != want {
		t.Fatalf("unexpected checks %v", names)
	}

	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Slate VOD source" || !strings.Contains(failed[0].Detail, "not found") {
		t.Fatalf("expected only the slate to fail, got %+v", failed)
	}
}

func TestRunAllReportsDisabledStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transcode.JobTemplate = ""
	cfg.Scheduling.SourceLocation = ""
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	env := Env{
		SDK:          staticCreds(),
		MediaPackage: fakePackager{err: notFound()},
	}

	results := RunAll(context.Background(), cfg, env)
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %+v", results)
	}
	if !results[2].Passed || !strings.HasPrefix(results[2].Detail, "Disabled") {
		t.Fatalf("expected job template reported disabled, got %+v", results[2])
	}
	if results[3].Passed || !strings.Contains(results[3].Detail, "not found") {
		t.Fatalf("expected packaging group failure, got %+v", results[3])
	}
	if !strings.HasPrefix(results[4].Detail, "Disabled") {
		t.Fatalf("expected source location reported disabled, got %+v", results[4])
	}
}

func TestRunAllStopsWithoutCredentials(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	results := RunAll(context.Background(), cfg, Env{SDK: aws.Config{}})
	if len(results) != 2 || results[1].Passed {
		t.Fatalf("expected directory and failed credential checks only, got %+v", results)
	}
}
