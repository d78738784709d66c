// containers.go implements container discovery and lifecycle operations
// for a running DraCor stack.
//
// Running services are recognized by image name rather than container
// name or label, because the stack may have been started by this tool,
// by a hand-written compose file, or manually with docker run. A
// container whose image starts with "dracor/dracor-api" (or
// "dracor/stable-dracor" for a frozen system) is treated as the api
// service, and so on for the other services.
package stack

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/docker/docker/api/types"

	// container package provides ListOptions, StopOptions, CommitOptions
	// for Docker container operations.
	"github.com/docker/docker/api/types/container"

	"github.com/dracor-org/stabledracor/internal/model"
)

// serviceImagePrefixes maps each service to the image name prefixes
// that identify it. The api service has two: the stock image and the
// image produced by freezing a system.
var serviceImagePrefixes = map[model.ServiceName][]string{
	model.ServiceAPI:         {"dracor/dracor-api", "dracor/stable-dracor"},
	model.ServiceFrontend:    {"dracor/dracor-frontend"},
	model.ServiceMetrics:     {"dracor/dracor-metrics"},
	model.ServiceTriplestore: {"dracor/dracor-fuseki"},
}

// ListContainers queries the Docker daemon for running containers and
// converts them to the domain model. Stopped containers are excluded
// because only a live stack can be inspected or populated.
func ListContainers(ctx context.Context, cli *Client) ([]model.ContainerInfo, error) {
	containers, err := cli.Inner().ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to list Docker containers",
			err,
		)
	}

	result := make([]model.ContainerInfo, 0, len(containers))
	for _, c := range containers {
		result = append(result, containerToInfo(c))
	}

	return result, nil
}

// containerToInfo converts a Docker API container struct to the domain
// model. The Docker API returns container names with a leading "/"
// which is stripped for display.
func containerToInfo(c types.Container) model.ContainerInfo {
	name := ""
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}

	return model.ContainerInfo{
		ID:             c.ID,
		Name:           name,
		Image:          c.Image,
		State:          c.State,
		ComposeProject: c.Labels["com.docker.compose.project"],
		ComposeService: c.Labels["com.docker.compose.service"],
	}
}

// imageService returns the service a container image belongs to, or
// false if the image is not a recognized DraCor service image.
func imageService(image string) (model.ServiceName, bool) {
	for _, name := range model.AllServices() {
		for _, prefix := range serviceImagePrefixes[name] {
			if strings.HasPrefix(image, prefix) {
				return name, true
			}
		}
	}
	return "", false
}

// DetectServices maps running containers to stack services by image
// name. When several containers match the same service, the first one
// wins and a warning is logged; the extra container probably belongs
// to a second stack running on the same host.
//
// The logf parameter receives warnings and may be nil.
func DetectServices(ctx context.Context, cli *Client, logf func(format string, args ...any)) (map[model.ServiceName]*model.Service, error) {
	if logf == nil {
		logf = func(string, ...any) {}
	}

	containers, err := ListContainers(ctx, cli)
	if err != nil {
		return nil, err
	}

	services := make(map[model.ServiceName]*model.Service)
	for _, c := range containers {
		name, ok := imageService(c.Image)
		if !ok {
			continue
		}
		if existing, dup := services[name]; dup {
			logf("multiple containers match service %s, keeping %s and ignoring %s", name, existing.Container, c.ID)
			continue
		}

		image, version := splitImageTag(c.Image)
		services[name] = &model.Service{
			Container: c.ID,
			Image:     image,
			Version:   version,
		}
	}

	if len(services) == 0 {
		logf("no running DraCor services found")
	}

	return services, nil
}

// splitImageTag separates an image reference into name and tag. A
// reference without a tag yields an empty version; registry ports
// (a ":" before the last "/") are not mistaken for tags.
func splitImageTag(ref string) (image, tag string) {
	idx := strings.LastIndex(ref, ":")
	if idx < 0 || strings.Contains(ref[idx:], "/") {
		return ref, ""
	}
	return ref[:idx], ref[idx+1:]
}

// StopContainer stops a single container using the Docker default
// timeout before the daemon resorts to SIGKILL.
func StopContainer(ctx context.Context, cli *Client, containerID string) error {
	err := cli.Inner().ContainerStop(ctx, containerID, container.StopOptions{})
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to stop container %s", containerID),
			err,
		)
	}
	return nil
}

// CommitContainer commits a container to a new image. The reference is
// the target image name including tag; changes is a list of Dockerfile
// instructions applied to the committed image, which is how the
// manifest labels are attached to a frozen system.
//
// Returns the ID of the created image.
func CommitContainer(ctx context.Context, cli *Client, containerID, reference, comment string, changes []string) (string, error) {
	resp, err := cli.Inner().ContainerCommit(ctx, containerID, container.CommitOptions{
		Reference: reference,
		Comment:   comment,
		Changes:   changes,
	})
	if err != nil {
		return "", model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to commit container %s as %s", containerID, reference),
			err,
		)
	}
	return resp.ID, nil
}

// ImageLabels returns the labels of a local image. Used to read the
// manifest back from a frozen system image.
func ImageLabels(ctx context.Context, cli *Client, imageRef string) (map[string]string, error) {
	inspect, _, err := cli.Inner().ImageInspectWithRaw(ctx, imageRef)
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to inspect image %s", imageRef),
			err,
		)
	}
	if inspect.Config == nil {
		return map[string]string{}, nil
	}
	return inspect.Config.Labels, nil
}

// PushImage pushes an image to its registry by shelling out to the
// docker CLI, which reuses the credentials from "docker login" without
// this tool having to handle auth tokens.
func PushImage(ctx context.Context, imageRef string) error {
	cmd := exec.CommandContext(ctx, "docker", "push", imageRef)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("docker push %s failed: %s", imageRef, strings.TrimSpace(string(output))),
			err,
		)
	}
	return nil
}
