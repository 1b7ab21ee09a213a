// Package config implements functions to assist with attribute evaluation in the local navigator.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	"go.viam.com/utils"
	"gopkg.in/yaml.v3"

	"github.com/viam-modules/viam-localnav/controlloop"
	"github.com/viam-modules/viam-localnav/obstacles"
	"github.com/viam-modules/viam-localnav/planner"
	"github.com/viam-modules/viam-localnav/pursuit"
	s "github.com/viam-modules/viam-localnav/sensors"
)

const (
	defaultCellSize                      = 0.1
	defaultPlanRadius                    = 2.0
	defaultLookahead                     = 0.3
	defaultKP                            = 0.1
	defaultSpeed                         = 0.05
	defaultGoalTolerance                 = 0.1
	defaultMinTargetDistance             = 0.01
	defaultOccupancyThreshold            = 0.75
	defaultMinHeight                     = 0.3
	defaultMaxHeight                     = 1.0
	defaultLogOddsMin                    = -127
	defaultLogOddsMax                    = 127
	defaultControlRateHz                 = 30.0
	defaultGoalStep                      = 0.1
	defaultDriveBaudRate                 = 115200
	defaultSensorValidationMaxTimeoutSec = 30
	defaultSensorValidationIntervalSec   = 1
	defaultDebugDataEveryN               = 30
)

var (
	errDriveRequired  = errors.New("one of drive_serial_path, drive_address or base must be set")
	errDriveAmbiguous = errors.New("only one of drive_serial_path, drive_address or base may be set")
	errPoseAmbiguous  = errors.New("only one of pose_address or movement_sensor may be set")
	errPoseFrame      = errors.New("pose_frame must be local or gps")
	errAPIKeyPair     = errors.New("robot_api_key_id and robot_api_key must be set together")
	errHeightBand     = errors.New("min_height_m must be less than max_height_m")
	errLogOddsRange   = errors.New("logodds_min must be less than logodds_max")
	errThresholdRange = errors.New("occupancy_threshold must be between 0 and 1")
)

// newError returns an error specific to a failure in the navigator config.
func newError(configError string) error {
	return errors.Errorf("local navigator configuration error: %s", configError)
}

// Config describes how to configure the local navigator. Unset optional fields take
// their defaults in GetOptionalParameters.
type Config struct {
	CellSize             float64 `json:"cell_size_m" yaml:"cell_size_m"`
	VoxelSize            float64 `json:"voxel_size_m" yaml:"voxel_size_m"`
	PlanRadius           float64 `json:"plan_radius_m" yaml:"plan_radius_m"`
	InflateRadius        float64 `json:"inflate_radius_m" yaml:"inflate_radius_m"`
	PreventCornerCutting bool    `json:"prevent_corner_cutting" yaml:"prevent_corner_cutting"`

	Lookahead         float64  `json:"lookahead_m" yaml:"lookahead_m"`
	KP                *float64 `json:"kp" yaml:"kp"`
	Speed             float64  `json:"speed_m_per_s" yaml:"speed_m_per_s"`
	GoalTolerance     float64  `json:"goal_tolerance_m" yaml:"goal_tolerance_m"`
	MinTargetDistance float64  `json:"min_target_distance_m" yaml:"min_target_distance_m"`

	OccupancyThreshold *float64 `json:"occupancy_threshold" yaml:"occupancy_threshold"`
	MinHeight          *float64 `json:"min_height_m" yaml:"min_height_m"`
	MaxHeight          *float64 `json:"max_height_m" yaml:"max_height_m"`
	LogOddsMin         *int     `json:"logodds_min" yaml:"logodds_min"`
	LogOddsMax         *int     `json:"logodds_max" yaml:"logodds_max"`

	ControlRateHz float64 `json:"control_rate_hz" yaml:"control_rate_hz"`
	GoalStep      float64 `json:"goal_step_m" yaml:"goal_step_m"`

	PoseAddress      string `json:"pose_address" yaml:"pose_address"`
	OccupancyAddress string `json:"occupancy_address" yaml:"occupancy_address"`
	DriveSerialPath  string `json:"drive_serial_path" yaml:"drive_serial_path"`
	DriveAddress     string `json:"drive_address" yaml:"drive_address"`
	DriveBaudRate    int    `json:"drive_baud_rate" yaml:"drive_baud_rate"`
	KeyboardEnabled  bool   `json:"keyboard_enabled" yaml:"keyboard_enabled"`

	// RobotAddress is dialed when the pose or the drive comes from robot components.
	RobotAddress   string `json:"robot_address" yaml:"robot_address"`
	RobotAPIKeyID  string `json:"robot_api_key_id" yaml:"robot_api_key_id"`
	RobotAPIKey    string `json:"robot_api_key" yaml:"robot_api_key"`
	MovementSensor string `json:"movement_sensor" yaml:"movement_sensor"`
	PoseFrame      string `json:"pose_frame" yaml:"pose_frame"`
	Base           string `json:"base" yaml:"base"`

	SensorValidationMaxTimeoutSec int  `json:"sensor_validation_max_timeout_sec" yaml:"sensor_validation_max_timeout_sec"`
	SensorValidationIntervalSec   int  `json:"sensor_validation_interval_sec" yaml:"sensor_validation_interval_sec"`
	DebugRecord                   bool `json:"debug_record" yaml:"debug_record"`

	DebugDataDirectory string `json:"debug_data_dir" yaml:"debug_data_dir"`
	DebugDataEveryN    int    `json:"debug_data_every_n" yaml:"debug_data_every_n"`
}

// Load reads a YAML (or JSON) config file and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config file %s", path)
	}
	if err := config.Validate(path); err != nil {
		return nil, newError(err.Error())
	}
	return &config, nil
}

// Validate checks required fields and value ranges.
func (config *Config) Validate(path string) error {
	if config.InflateRadius <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "inflate_radius_m")
	}
	switch {
	case config.PoseAddress == "" && config.MovementSensor == "":
		return utils.NewConfigValidationFieldRequiredError(path, "pose_address")
	case config.PoseAddress != "" && config.MovementSensor != "":
		return utils.NewConfigValidationError(path, errPoseAmbiguous)
	}
	if config.OccupancyAddress == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "occupancy_address")
	}

	drives := 0
	for _, d := range []string{config.DriveSerialPath, config.DriveAddress, config.Base} {
		if d != "" {
			drives++
		}
	}
	switch {
	case drives == 0:
		return utils.NewConfigValidationError(path, errDriveRequired)
	case drives > 1:
		return utils.NewConfigValidationError(path, errDriveAmbiguous)
	}

	if (config.MovementSensor != "" || config.Base != "") && config.RobotAddress == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "robot_address")
	}
	if (config.RobotAPIKeyID == "") != (config.RobotAPIKey == "") {
		return utils.NewConfigValidationError(path, errAPIKeyPair)
	}
	switch s.PoseFrame(config.PoseFrame) {
	case "", s.PoseFrameLocal, s.PoseFrameGPS:
	default:
		return utils.NewConfigValidationError(path, errPoseFrame)
	}

	for _, field := range []struct {
		name  string
		value float64
	}{
		{"cell_size_m", config.CellSize},
		{"voxel_size_m", config.VoxelSize},
		{"plan_radius_m", config.PlanRadius},
		{"lookahead_m", config.Lookahead},
		{"speed_m_per_s", config.Speed},
		{"goal_tolerance_m", config.GoalTolerance},
		{"min_target_distance_m", config.MinTargetDistance},
		{"control_rate_hz", config.ControlRateHz},
		{"goal_step_m", config.GoalStep},
	} {
		if field.value < 0 {
			return errors.Errorf("cannot specify %s less than zero", field.name)
		}
	}
	if config.ControlRateHz > controlloop.MaxRate {
		return errors.Errorf("cannot specify control_rate_hz greater than %v", controlloop.MaxRate)
	}
	if config.DriveBaudRate < 0 {
		return errors.New("cannot specify drive_baud_rate less than zero")
	}
	if config.DebugDataEveryN < 0 {
		return errors.New("cannot specify debug_data_every_n less than zero")
	}
	if config.SensorValidationMaxTimeoutSec < 0 {
		return errors.New("cannot specify sensor_validation_max_timeout_sec less than zero")
	}
	if config.SensorValidationIntervalSec < 0 {
		return errors.New("cannot specify sensor_validation_interval_sec less than zero")
	}

	if t := config.OccupancyThreshold; t != nil && (*t < 0 || *t > 1) {
		return utils.NewConfigValidationError(path, errThresholdRange)
	}
	if floatOr(config.MinHeight, defaultMinHeight) >= floatOr(config.MaxHeight, defaultMaxHeight) {
		return utils.NewConfigValidationError(path, errHeightBand)
	}
	if intOr(config.LogOddsMin, defaultLogOddsMin) >= intOr(config.LogOddsMax, defaultLogOddsMax) {
		return utils.NewConfigValidationError(path, errLogOddsRange)
	}
	return nil
}

// OptionalConfigParams holds the optional parameters with defaults applied.
type OptionalConfigParams struct {
	CellSize           float64
	VoxelSize          float64
	PlanRadius         float64
	Lookahead          float64
	KP                 float64
	Speed              float64
	GoalTolerance      float64
	MinTargetDistance  float64
	OccupancyThreshold float64
	MinHeight          float64
	MaxHeight          float64
	LogOddsMin         int
	LogOddsMax         int
	ControlRateHz      float64
	GoalStep           float64
	DriveBaudRate      int
	DebugDataEveryN    int

	SensorValidationMaxTimeout time.Duration
	SensorValidationInterval   time.Duration
}

// GetOptionalParameters fills every unset optional config parameter with its default and
// returns the result.
func GetOptionalParameters(config *Config, logger logging.Logger) OptionalConfigParams {
	optionalConfigParams := OptionalConfigParams{
		CellSize:           config.CellSize,
		VoxelSize:          config.VoxelSize,
		PlanRadius:         config.PlanRadius,
		Lookahead:          config.Lookahead,
		Speed:              config.Speed,
		GoalTolerance:      config.GoalTolerance,
		MinTargetDistance:  config.MinTargetDistance,
		ControlRateHz:      config.ControlRateHz,
		GoalStep:           config.GoalStep,
		DriveBaudRate:      config.DriveBaudRate,
		DebugDataEveryN:    config.DebugDataEveryN,
		KP:                 floatOr(config.KP, defaultKP),
		OccupancyThreshold: floatOr(config.OccupancyThreshold, defaultOccupancyThreshold),
		MinHeight:          floatOr(config.MinHeight, defaultMinHeight),
		MaxHeight:          floatOr(config.MaxHeight, defaultMaxHeight),
		LogOddsMin:         intOr(config.LogOddsMin, defaultLogOddsMin),
		LogOddsMax:         intOr(config.LogOddsMax, defaultLogOddsMax),
	}

	if config.CellSize == 0 {
		optionalConfigParams.CellSize = defaultCellSize
		logger.Debugf("no cell_size_m given, setting to default value of %v", defaultCellSize)
	}
	if config.VoxelSize == 0 {
		optionalConfigParams.VoxelSize = optionalConfigParams.CellSize
		logger.Debugf("no voxel_size_m given, setting to cell size of %v", optionalConfigParams.CellSize)
	}
	if config.PlanRadius == 0 {
		optionalConfigParams.PlanRadius = defaultPlanRadius
		logger.Debugf("no plan_radius_m given, setting to default value of %v", defaultPlanRadius)
	}
	if config.Lookahead == 0 {
		optionalConfigParams.Lookahead = defaultLookahead
		logger.Debugf("no lookahead_m given, setting to default value of %v", defaultLookahead)
	}
	if config.KP == nil {
		logger.Debugf("no kp given, setting to default value of %v", defaultKP)
	}
	if config.Speed == 0 {
		optionalConfigParams.Speed = defaultSpeed
		logger.Debugf("no speed_m_per_s given, setting to default value of %v", defaultSpeed)
	}
	if config.GoalTolerance == 0 {
		optionalConfigParams.GoalTolerance = defaultGoalTolerance
		logger.Debugf("no goal_tolerance_m given, setting to default value of %v", defaultGoalTolerance)
	}
	if config.MinTargetDistance == 0 {
		optionalConfigParams.MinTargetDistance = defaultMinTargetDistance
		logger.Debugf("no min_target_distance_m given, setting to default value of %v", defaultMinTargetDistance)
	}
	if config.ControlRateHz == 0 {
		optionalConfigParams.ControlRateHz = defaultControlRateHz
		logger.Debugf("no control_rate_hz given, setting to default value of %v", defaultControlRateHz)
	}
	if config.GoalStep == 0 {
		optionalConfigParams.GoalStep = defaultGoalStep
		logger.Debugf("no goal_step_m given, setting to default value of %v", defaultGoalStep)
	}
	if config.DriveBaudRate == 0 && config.DriveSerialPath != "" {
		optionalConfigParams.DriveBaudRate = defaultDriveBaudRate
		logger.Debugf("no drive_baud_rate given, setting to default value of %d", defaultDriveBaudRate)
	}
	if config.DebugDataEveryN == 0 && config.DebugDataDirectory != "" {
		optionalConfigParams.DebugDataEveryN = defaultDebugDataEveryN
		logger.Debugf("no debug_data_every_n given, setting to default value of %d", defaultDebugDataEveryN)
	}

	maxTimeoutSec := config.SensorValidationMaxTimeoutSec
	if maxTimeoutSec == 0 {
		maxTimeoutSec = defaultSensorValidationMaxTimeoutSec
		logger.Debugf("no sensor_validation_max_timeout_sec given, setting to default value of %d", maxTimeoutSec)
	}
	intervalSec := config.SensorValidationIntervalSec
	if intervalSec == 0 {
		intervalSec = defaultSensorValidationIntervalSec
		logger.Debugf("no sensor_validation_interval_sec given, setting to default value of %d", intervalSec)
	}
	optionalConfigParams.SensorValidationMaxTimeout = time.Duration(maxTimeoutSec) * time.Second
	optionalConfigParams.SensorValidationInterval = time.Duration(intervalSec) * time.Second

	return optionalConfigParams
}

// PlannerOptions returns the planner options described by config.
func (config *Config) PlannerOptions(params OptionalConfigParams) planner.Options {
	return planner.Options{
		CellSize:             params.CellSize,
		PlanRadius:           params.PlanRadius,
		InflateRadius:        config.InflateRadius,
		PreventCornerCutting: config.PreventCornerCutting,
	}
}

// PursuitOptions returns the path follower options described by params.
func (params OptionalConfigParams) PursuitOptions() pursuit.Options {
	return pursuit.Options{
		Lookahead:         params.Lookahead,
		CellSize:          params.CellSize,
		KP:                params.KP,
		Speed:             params.Speed,
		GoalTolerance:     params.GoalTolerance,
		MinTargetDistance: params.MinTargetDistance,
	}
}

// Extractor returns the obstacle extractor described by params.
func (params OptionalConfigParams) Extractor() obstacles.Extractor {
	return obstacles.Extractor{
		Codec:      obstacles.PackedKeyCodec{VoxelSize: params.VoxelSize},
		Normalizer: obstacles.LogOddsNormalizer{Min: params.LogOddsMin, Max: params.LogOddsMax},
		Threshold:  params.OccupancyThreshold,
		MinHeight:  params.MinHeight,
		MaxHeight:  params.MaxHeight,
	}
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
