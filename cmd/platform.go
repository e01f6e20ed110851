package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ezenkico/deploy-commander/topology/interfaces"
	"github.com/ezenkico/deploy-commander/topology/models"
	awsplatform "github.com/ezenkico/deploy-commander/topology/services/aws"
	"github.com/ezenkico/deploy-commander/topology/services/docker"
	"github.com/ezenkico/deploy-commander/topology/services/memory"
)

func selectPlatform(cfg *models.Configuration, log *logrus.Entry) (interfaces.Platform, error) {
	switch cfg.Platform {
	case "aws":
		return awsplatform.NewAWSPlatform(cfg, log)
	case "docker":
		return docker.NewDockerPlatform(cfg, log)
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("%q is not a valid platform", cfg.Platform)
	}
}
