package remote

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/mediapackagevod"
	"github.com/aws/aws-sdk-go-v2/service/mediapackagevod/types"

	"fastchannels/internal/reconcile"
	"fastchannels/internal/resources"
)

// MediaPackageAPI is the slice of the packager client the pipeline uses.
type MediaPackageAPI interface {
	CreateAsset(ctx context.Context, params *mediapackagevod.CreateAssetInput, optFns ...func(*mediapackagevod.Options)) (*mediapackagevod.CreateAssetOutput, error)
	DescribeAsset(ctx context.Context, params *mediapackagevod.DescribeAssetInput, optFns ...func(*mediapackagevod.Options)) (*mediapackagevod.DescribeAssetOutput, error)
	DeleteAsset(ctx context.Context, params *mediapackagevod.DeleteAssetInput, optFns ...func(*mediapackagevod.Options)) (*mediapackagevod.DeleteAssetOutput, error)
	ListTagsForResource(ctx context.Context, params *mediapackagevod.ListTagsForResourceInput, optFns ...func(*mediapackagevod.Options)) (*mediapackagevod.ListTagsForResourceOutput, error)
	DescribePackagingGroup(ctx context.Context, params *mediapackagevod.DescribePackagingGroupInput, optFns ...func(*mediapackagevod.Options)) (*mediapackagevod.DescribePackagingGroupOutput, error)
}

const unprocessableCode = "UnprocessableEntityException"

// AssetStore stores packager VOD assets. Assets cannot be modified, so
// Update deletes and recreates the asset after Gap.
type AssetStore struct {
	Client MediaPackageAPI
	Gap    time.Duration
	Sleep  func(ctx context.Context, d time.Duration) error
}

func assetResource(a resources.Asset) string {
	return "asset/" + a.ID
}

// Create ingests the asset with its tags.
func (s *AssetStore) Create(ctx context.Context, desired resources.Asset) (resources.Asset, error) {
	input := &mediapackagevod.CreateAssetInput{
		Id:               aws.String(desired.ID),
		PackagingGroupId: aws.String(desired.PackagingGroupID),
		SourceArn:        aws.String(desired.SourceARN),
		SourceRoleArn:    aws.String(desired.SourceRoleARN),
	}
	if len(desired.Tags) > 0 {
		input.Tags = desired.Tags
	}
	out, err := s.Client.CreateAsset(ctx, input)
	if err != nil {
		return resources.Asset{}, probeCreateFailure(ctx, err, assetResource(desired), unprocessableCode,
			func(ctx context.Context) (bool, error) {
				_, err := s.Read(ctx, desired)
				if err != nil {
					return false, err
				}
				return true, nil
			})
	}
	return resources.Asset{
		ID:               aws.ToString(out.Id),
		ARN:              aws.ToString(out.Arn),
		PackagingGroupID: aws.ToString(out.PackagingGroupId),
		SourceARN:        aws.ToString(out.SourceArn),
		SourceRoleARN:    aws.ToString(out.SourceRoleArn),
		Tags:             out.Tags,
		EgressEndpoints:  fromEgressEndpoints(out.EgressEndpoints),
	}, nil
}

// Read describes the current asset.
func (s *AssetStore) Read(ctx context.Context, desired resources.Asset) (resources.Asset, error) {
	out, err := s.Client.DescribeAsset(ctx, &mediapackagevod.DescribeAssetInput{Id: aws.String(desired.ID)})
	if err != nil {
		return resources.Asset{}, Classify(err, assetResource(desired))
	}
	return resources.Asset{
		ID:               aws.ToString(out.Id),
		ARN:              aws.ToString(out.Arn),
		PackagingGroupID: aws.ToString(out.PackagingGroupId),
		SourceARN:        aws.ToString(out.SourceArn),
		SourceRoleARN:    aws.ToString(out.SourceRoleArn),
		Tags:             out.Tags,
		EgressEndpoints:  fromEgressEndpoints(out.EgressEndpoints),
	}, nil
}

// Update replaces the asset. A NotFound on delete is ignored; a collision on
// the recreate is reported as AlreadyExists so the writer starts a new round.
func (s *AssetStore) Update(ctx context.Context, merged resources.Asset) (resources.Asset, error) {
	_, err := s.Client.DeleteAsset(ctx, &mediapackagevod.DeleteAssetInput{Id: aws.String(merged.ID)})
	if err := Classify(err, assetResource(merged)); err != nil && !reconcile.IsKind(err, reconcile.KindNotFound) {
		return resources.Asset{}, err
	}
	sleep := s.Sleep
	if sleep == nil {
		sleep = reconcile.Sleep
	}
	if err := sleep(ctx, s.Gap); err != nil {
		return resources.Asset{}, err
	}
	return s.Create(ctx, merged)
}

// Tags lists the tags attached to an asset ARN.
func (s *AssetStore) Tags(ctx context.Context, arn string) (map[string]string, error) {
	out, err := s.Client.ListTagsForResource(ctx, &mediapackagevod.ListTagsForResourceInput{ResourceArn: aws.String(arn)})
	if err != nil {
		return nil, Classify(err, arn)
	}
	return out.Tags, nil
}

func fromEgressEndpoints(endpoints []types.EgressEndpoint) []resources.EgressEndpoint {
	out := make([]resources.EgressEndpoint, 0, len(endpoints))
	for _, endpoint := range endpoints {
		out = append(out, resources.EgressEndpoint{
			URL:             aws.ToString(endpoint.Url),
			ConfigurationID: aws.ToString(endpoint.PackagingConfigurationId),
			Status:          aws.ToString(endpoint.Status),
		})
	}
	return out
}

// PackagingGroupExists reports whether the packaging group is present.
func PackagingGroupExists(ctx context.Context, client MediaPackageAPI, id string) error {
	_, err := client.DescribePackagingGroup(ctx, &mediapackagevod.DescribePackagingGroupInput{Id: aws.String(id)})
	return Classify(err, "packaging_group/"+id)
}
