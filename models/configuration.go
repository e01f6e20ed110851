package models

import (
	"github.com/google/uuid"
)

type Configuration struct {
	Job uuid.UUID `json:"job" yaml:"job"` // UUID
	Run uuid.UUID `json:"run" yaml:"run"` // UUID

	StackName string `json:"stackName" yaml:"stackName"`
	Platform  string `json:"platform" yaml:"platform"` // aws | docker | memory

	// Deployment environment
	Account        string `json:"account" yaml:"account"`
	Region         string `json:"region" yaml:"region"`
	CertificateArn string `json:"certificateArn" yaml:"certificateArn"`

	// Artifact source. ImageRepository wins over ServicesDir when set.
	ServicesDir     string `json:"servicesDir,omitempty" yaml:"servicesDir,omitempty"`
	ImageRepository string `json:"imageRepository,omitempty" yaml:"imageRepository,omitempty"`
	ImageTag        string `json:"imageTag,omitempty" yaml:"imageTag,omitempty"`

	ExecutionRoleArn string `json:"executionRoleArn,omitempty" yaml:"executionRoleArn,omitempty"`

	// Build behaviour
	Parallelism        int  `json:"parallelism,omitempty" yaml:"parallelism,omitempty"`
	ContinueOnError    bool `json:"continueOnError,omitempty" yaml:"continueOnError,omitempty"`
	ValidateTaskSizing bool `json:"validateTaskSizing,omitempty" yaml:"validateTaskSizing,omitempty"`

	Microservices []MicroserviceSpec `json:"microservices" yaml:"microservices"`
}
