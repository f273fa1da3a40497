package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"golang.org/x/sys/unix"

	"fastchannels/internal/awsclient"
	"fastchannels/internal/reconcile"
	"fastchannels/internal/remote"
)

// remoteTimeout bounds each remote describe call. Checks make a single
// attempt on top of the SDK's own retryer.
const remoteTimeout = 10 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCredentials verifies that the credential chain resolves.
func CheckCredentials(ctx context.Context, sdkCfg aws.Config) Result {
	const name = "AWS credentials"
	checkCtx, cancel := context.WithTimeout(ctx, remoteTimeout)
	defer cancel()
	if err := awsclient.CredentialsAvailable(checkCtx, sdkCfg); err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	region := sdkCfg.Region
	if region == "" {
		return Result{Name: name, Detail: "credentials resolved but no region configured"}
	}
	return Result{Name: name, Passed: true, Detail: "resolved (" + region + ")"}
}

// CheckJobTemplate verifies that the transcode job template exists.
func CheckJobTemplate(ctx context.Context, client remote.MediaConvertAPI, name string) Result {
	return describe(ctx, "Job template", name, func(ctx context.Context) error {
		_, err := (&remote.JobClient{Client: client}).Template(ctx, name)
		return err
	})
}

// CheckPackagingGroup verifies that the packaging group exists.
func CheckPackagingGroup(ctx context.Context, client remote.MediaPackageAPI, id string) Result {
	return describe(ctx, "Packaging group", id, func(ctx context.Context) error {
		return remote.PackagingGroupExists(ctx, client, id)
	})
}

// CheckSourceLocation verifies that the ad-stitcher source location exists.
func CheckSourceLocation(ctx context.Context, client remote.MediaTailorAPI, name string) Result {
	return describe(ctx, "Source location", name, func(ctx context.Context) error {
		return remote.SourceLocationExists(ctx, client, name)
	})
}

// CheckChannel verifies that the scheduling channel exists.
func CheckChannel(ctx context.Context, client remote.MediaTailorAPI, name string) Result {
	return describe(ctx, "Channel", name, func(ctx context.Context) error {
		return remote.ChannelExists(ctx, client, name)
	})
}

// CheckSlate verifies that the slate VOD source filling ad breaks exists.
func CheckSlate(ctx context.Context, client remote.MediaTailorAPI, location, name string) Result {
	return describe(ctx, "Slate VOD source", location+"/"+name, func(ctx context.Context) error {
		return remote.VodSourceExists(ctx, client, location, name)
	})
}

func describe(ctx context.Context, name, target string, call func(context.Context) error) Result {
	checkCtx, cancel := context.WithTimeout(ctx, remoteTimeout)
	defer cancel()
	if err := call(checkCtx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%s)", target, summarizeError(err))}
	}
	return Result{Name: name, Passed: true, Detail: target}
}

// summarizeError produces a human-readable summary for a failed check.
func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	switch reconcile.KindOf(err) {
	case reconcile.KindNotFound:
		return "not found"
	case reconcile.KindThrottled:
		return "throttled, retry later"
	}
	return err.Error()
}
