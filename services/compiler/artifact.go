package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ezenkico/deploy-commander/topology/models"
)

// Artifact is a resolved image location for one service.
type Artifact struct {
	Image        string
	BuildContext string // empty for registry images
}

// ArtifactResolver maps a service name to a buildable image location.
type ArtifactResolver interface {
	Resolve(service string) (Artifact, error)
}

// DirectoryArtifacts resolves services to <Root>/<name> source folders
// built into a local <name>:<Tag> image.
type DirectoryArtifacts struct {
	Root string
	Tag  string
}

func (d DirectoryArtifacts) Resolve(service string) (Artifact, error) {
	dir := filepath.Join(d.Root, service)
	info, err := os.Stat(dir)
	if err != nil {
		return Artifact{}, &models.ArtifactUnresolvableError{Service: service, Err: err}
	}
	if !info.IsDir() {
		return Artifact{}, &models.ArtifactUnresolvableError{Service: service, Err: fmt.Errorf("%s is not a directory", dir)}
	}
	return Artifact{Image: service + ":" + d.Tag, BuildContext: dir}, nil
}

// RegistryArtifacts resolves services to <Repository>/<name>:<Tag>.
type RegistryArtifacts struct {
	Repository string
	Tag        string
}

func (r RegistryArtifacts) Resolve(service string) (Artifact, error) {
	repo := strings.TrimSuffix(r.Repository, "/")
	if repo == "" {
		return Artifact{}, &models.ArtifactUnresolvableError{Service: service, Err: fmt.Errorf("image repository is empty")}
	}
	return Artifact{Image: fmt.Sprintf("%s/%s:%s", repo, service, r.Tag)}, nil
}

// NewArtifactResolver picks the registry resolver when a repository is
// configured, the directory resolver otherwise.
func NewArtifactResolver(cfg *models.Configuration) ArtifactResolver {
	tag := cfg.ImageTag
	if tag == "" {
		tag = "latest"
	}
	if cfg.ImageRepository != "" {
		return RegistryArtifacts{Repository: cfg.ImageRepository, Tag: tag}
	}
	return DirectoryArtifacts{Root: cfg.ServicesDir, Tag: tag}
}
