package core

import (
	"fmt"
	"strconv"
)

// Matrix names understood by the assignment engine.
const (
	MatrixCar   = "matrix"
	MatrixNoCar = "nocar"
)

// BaseYearSocio is the economic scenario name reserved for base year runs.
const BaseYearSocio = "baseyear"

// NoProject is the resilience project value for baseline runs.
const NoProject = "no"

// RunParams identifies a single engine run.
type RunParams struct {
	Socio      string  `json:"socio" yaml:"socio"`
	ProjGroup  string  `json:"projgroup" yaml:"projgroup"`
	Resil      string  `json:"resil" yaml:"resil"`
	Elasticity float64 `json:"elasticity" yaml:"elasticity"`
	Hazard     string  `json:"hazard" yaml:"hazard"`
	Recovery   string  `json:"recovery" yaml:"recovery"`
	RunMiniEq  bool    `json:"run_minieq" yaml:"run_minieq"`
	MatrixName string  `json:"matrix_name" yaml:"matrix_name"`
}

// Validate checks that the run parameters can name a run.
func (p RunParams) Validate() error {
	if p.Socio == "" {
		return fmt.Errorf("socio is required")
	}
	if p.ProjGroup == "" {
		return fmt.Errorf("projgroup is required")
	}
	if p.Resil == "" {
		return fmt.Errorf("resil is required")
	}
	if p.Hazard == "" {
		return fmt.Errorf("hazard is required")
	}
	if _, err := p.RecoveryDepth(); err != nil {
		return err
	}
	if p.Elasticity > 0 {
		return fmt.Errorf("elasticity must be non-positive, got %g", p.Elasticity)
	}
	switch p.MatrixName {
	case MatrixCar, MatrixNoCar:
	default:
		return fmt.Errorf("matrix_name must be %q or %q, got %q", MatrixCar, MatrixNoCar, p.MatrixName)
	}
	return nil
}

// RecoveryDepth parses the recovery stage as the exposure depth to subtract.
func (p RunParams) RecoveryDepth() (int, error) {
	d, err := strconv.Atoi(p.Recovery)
	if err != nil {
		return 0, fmt.Errorf("recovery must be an integer depth, got %q", p.Recovery)
	}
	if d < 0 {
		return 0, fmt.Errorf("recovery must be non-negative, got %d", d)
	}
	return d, nil
}

// ElasticityName encodes the elasticity for folder names, e.g. -0.5 becomes "5".
func (p RunParams) ElasticityName() string {
	return strconv.Itoa(int(10 * -p.Elasticity))
}

// BaseScenario is the name of the undisrupted network scenario.
func (p RunParams) BaseScenario() string {
	return p.Socio + p.ProjGroup
}

// DisruptScenario is the name of the disrupted network scenario.
func (p RunParams) DisruptScenario() string {
	return p.BaseScenario() + "_" + p.Resil + "_" + p.ElasticityName() + "_" + p.Hazard + "_" + p.Recovery
}

// DisruptKey names the hazard/recovery/project combination used in output file names.
func (p RunParams) DisruptKey() string {
	return p.Resil + "_" + p.Hazard + "_" + p.Recovery
}

// AvailabilityFile names the link availability table of a disrupted run.
func (p RunParams) AvailabilityFile() string {
	return "NP_Disrupt_" + p.DisruptKey() + ".csv"
}

// IsBaseYear reports whether the run belongs to the base year set.
func (p RunParams) IsBaseYear() bool {
	return p.Socio == BaseYearSocio
}

func (p RunParams) String() string {
	return fmt.Sprintf("socio=%s projgroup=%s resil=%s elasticity=%g hazard=%s recovery=%s matrix=%s",
		p.Socio, p.ProjGroup, p.Resil, p.Elasticity, p.Hazard, p.Recovery, p.MatrixName)
}
