package vodsource

import (
	"fmt"
	"strings"
)

// ResourceName returns the resource part of an ARN with any resource type
// prefix ("type/name" or "type:name") removed.
func ResourceName(arn string) (string, error) {
	parts := strings.SplitN(arn, ":", 6)
	if len(parts) != 6 || parts[0] != "arn" {
		return "", fmt.Errorf("malformed arn %q", arn)
	}
	resource := parts[5]
	if _, name, ok := strings.Cut(resource, "/"); ok {
		resource = name
	} else if _, name, ok := strings.Cut(resource, ":"); ok {
		resource = name
	}
	if resource == "" {
		return "", fmt.Errorf("arn %q has no resource name", arn)
	}
	return resource, nil
}
