package objects

import (
	"github.com/oarkflow/streamguard/pkg/contracts"
)

var (
	Manager contracts.Manager
	Config  contracts.Config
)
