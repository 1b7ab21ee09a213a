package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	"go.viam.com/test"
	"go.viam.com/utils"

	"github.com/viam-modules/viam-localnav/obstacles"
)

const testCfgPath = "localnav.attributes.fake"

func makeConfig() *Config {
	return &Config{
		InflateRadius:    0.2,
		PoseAddress:      "127.0.0.1:5001",
		OccupancyAddress: "127.0.0.1:5002",
		DriveAddress:     "127.0.0.1:5003",
	}
}

func TestValidate(t *testing.T) {
	t.Run("Simplest valid config", func(t *testing.T) {
		test.That(t, makeConfig().Validate(testCfgPath), test.ShouldBeNil)
	})

	t.Run("Config without required fields", func(t *testing.T) {
		for field, unset := range map[string]func(*Config){
			"inflate_radius_m":  func(c *Config) { c.InflateRadius = 0 },
			"pose_address":      func(c *Config) { c.PoseAddress = "" },
			"occupancy_address": func(c *Config) { c.OccupancyAddress = "" },
		} {
			cfg := makeConfig()
			unset(cfg)
			err := cfg.Validate(testCfgPath)
			test.That(t, err, test.ShouldBeError, utils.NewConfigValidationFieldRequiredError(testCfgPath, field))
		}
	})

	t.Run("Config without a drive", func(t *testing.T) {
		cfg := makeConfig()
		cfg.DriveAddress = ""
		test.That(t, cfg.Validate(testCfgPath), test.ShouldBeError, utils.NewConfigValidationError(testCfgPath, errDriveRequired))
	})

	t.Run("Config with two drives", func(t *testing.T) {
		cfg := makeConfig()
		cfg.DriveSerialPath = "/dev/ttyUSB0"
		test.That(t, cfg.Validate(testCfgPath), test.ShouldBeError, utils.NewConfigValidationError(testCfgPath, errDriveAmbiguous))
	})

	t.Run("Config with robot components", func(t *testing.T) {
		cfg := makeConfig()
		cfg.PoseAddress = ""
		cfg.DriveAddress = ""
		cfg.MovementSensor = "odometer"
		cfg.Base = "base"
		cfg.PoseFrame = "gps"
		test.That(t, cfg.Validate(testCfgPath), test.ShouldBeError,
			utils.NewConfigValidationFieldRequiredError(testCfgPath, "robot_address"))

		cfg.RobotAddress = "localhost:8080"
		test.That(t, cfg.Validate(testCfgPath), test.ShouldBeNil)

		cfg.RobotAPIKeyID = "key-id"
		test.That(t, cfg.Validate(testCfgPath), test.ShouldBeError, utils.NewConfigValidationError(testCfgPath, errAPIKeyPair))
		cfg.RobotAPIKey = "key"
		test.That(t, cfg.Validate(testCfgPath), test.ShouldBeNil)

		cfg.PoseFrame = "utm"
		test.That(t, cfg.Validate(testCfgPath), test.ShouldBeError, utils.NewConfigValidationError(testCfgPath, errPoseFrame))
	})

	t.Run("Config with two pose sources", func(t *testing.T) {
		cfg := makeConfig()
		cfg.MovementSensor = "odometer"
		cfg.RobotAddress = "localhost:8080"
		test.That(t, cfg.Validate(testCfgPath), test.ShouldBeError, utils.NewConfigValidationError(testCfgPath, errPoseAmbiguous))
	})

	t.Run("Config with a base and a drive address", func(t *testing.T) {
		cfg := makeConfig()
		cfg.Base = "base"
		cfg.RobotAddress = "localhost:8080"
		test.That(t, cfg.Validate(testCfgPath), test.ShouldBeError, utils.NewConfigValidationError(testCfgPath, errDriveAmbiguous))
	})

	t.Run("Config with a control rate above the maximum", func(t *testing.T) {
		cfg := makeConfig()
		cfg.ControlRateHz = 2e9
		test.That(t, cfg.Validate(testCfgPath), test.ShouldBeError,
			errors.New("cannot specify control_rate_hz greater than 1000"))

		cfg.ControlRateHz = 1000
		test.That(t, cfg.Validate(testCfgPath), test.ShouldBeNil)
	})

	t.Run("Config with negative values", func(t *testing.T) {
		cfg := makeConfig()
		cfg.Lookahead = -1
		test.That(t, cfg.Validate(testCfgPath), test.ShouldBeError, errors.New("cannot specify lookahead_m less than zero"))

		cfg = makeConfig()
		cfg.DriveBaudRate = -9600
		test.That(t, cfg.Validate(testCfgPath), test.ShouldBeError, errors.New("cannot specify drive_baud_rate less than zero"))

		cfg = makeConfig()
		cfg.SensorValidationIntervalSec = -1
		test.That(t, cfg.Validate(testCfgPath), test.ShouldBeError,
			errors.New("cannot specify sensor_validation_interval_sec less than zero"))
	})

	t.Run("Config with inconsistent ranges", func(t *testing.T) {
		cfg := makeConfig()
		minHeight := 1.5
		cfg.MinHeight = &minHeight
		test.That(t, cfg.Validate(testCfgPath), test.ShouldBeError, utils.NewConfigValidationError(testCfgPath, errHeightBand))

		cfg = makeConfig()
		logOddsMax := -200
		cfg.LogOddsMax = &logOddsMax
		test.That(t, cfg.Validate(testCfgPath), test.ShouldBeError, utils.NewConfigValidationError(testCfgPath, errLogOddsRange))

		cfg = makeConfig()
		threshold := 1.1
		cfg.OccupancyThreshold = &threshold
		test.That(t, cfg.Validate(testCfgPath), test.ShouldBeError, utils.NewConfigValidationError(testCfgPath, errThresholdRange))
	})
}

func TestGetOptionalParameters(t *testing.T) {
	logger := logging.NewTestLogger(t)

	t.Run("Pass default parameters", func(t *testing.T) {
		params := GetOptionalParameters(makeConfig(), logger)
		test.That(t, params, test.ShouldResemble, OptionalConfigParams{
			CellSize:                   defaultCellSize,
			VoxelSize:                  defaultCellSize,
			PlanRadius:                 defaultPlanRadius,
			Lookahead:                  defaultLookahead,
			KP:                         defaultKP,
			Speed:                      defaultSpeed,
			GoalTolerance:              defaultGoalTolerance,
			MinTargetDistance:          defaultMinTargetDistance,
			OccupancyThreshold:         defaultOccupancyThreshold,
			MinHeight:                  defaultMinHeight,
			MaxHeight:                  defaultMaxHeight,
			LogOddsMin:                 defaultLogOddsMin,
			LogOddsMax:                 defaultLogOddsMax,
			ControlRateHz:              defaultControlRateHz,
			GoalStep:                   defaultGoalStep,
			SensorValidationMaxTimeout: 30 * time.Second,
			SensorValidationInterval:   time.Second,
		})
	})

	t.Run("Serial drive gets a default baud rate", func(t *testing.T) {
		cfg := makeConfig()
		cfg.DriveAddress = ""
		cfg.DriveSerialPath = "/dev/ttyUSB0"
		test.That(t, GetOptionalParameters(cfg, logger).DriveBaudRate, test.ShouldEqual, defaultDriveBaudRate)
	})

	t.Run("Return overrides", func(t *testing.T) {
		cfg := makeConfig()
		cfg.CellSize = 0.05
		cfg.Lookahead = 0.5
		kp := 0.0
		cfg.KP = &kp
		logOddsMin := 0
		cfg.LogOddsMin = &logOddsMin
		cfg.ControlRateHz = 10
		cfg.SensorValidationMaxTimeoutSec = 2

		params := GetOptionalParameters(cfg, logger)
		test.That(t, params.CellSize, test.ShouldEqual, 0.05)
		test.That(t, params.VoxelSize, test.ShouldEqual, 0.05)
		test.That(t, params.Lookahead, test.ShouldEqual, 0.5)
		test.That(t, params.KP, test.ShouldEqual, 0)
		test.That(t, params.LogOddsMin, test.ShouldEqual, 0)
		test.That(t, params.ControlRateHz, test.ShouldEqual, 10)
		test.That(t, params.SensorValidationMaxTimeout, test.ShouldEqual, 2*time.Second)
	})
}

func TestBuilders(t *testing.T) {
	cfg := makeConfig()
	cfg.PreventCornerCutting = true
	params := GetOptionalParameters(cfg, logging.NewTestLogger(t))

	plannerOpts := cfg.PlannerOptions(params)
	test.That(t, plannerOpts.CellSize, test.ShouldEqual, defaultCellSize)
	test.That(t, plannerOpts.PlanRadius, test.ShouldEqual, defaultPlanRadius)
	test.That(t, plannerOpts.InflateRadius, test.ShouldEqual, 0.2)
	test.That(t, plannerOpts.PreventCornerCutting, test.ShouldBeTrue)

	pursuitOpts := params.PursuitOptions()
	test.That(t, pursuitOpts.Lookahead, test.ShouldEqual, defaultLookahead)
	test.That(t, pursuitOpts.CellSize, test.ShouldEqual, defaultCellSize)
	test.That(t, pursuitOpts.MinTargetDistance, test.ShouldEqual, defaultMinTargetDistance)

	extractor := params.Extractor()
	test.That(t, extractor.Codec, test.ShouldResemble, obstacles.PackedKeyCodec{VoxelSize: defaultCellSize})
	test.That(t, extractor.Normalizer, test.ShouldResemble, obstacles.LogOddsNormalizer{Min: -127, Max: 127})
	test.That(t, extractor.Threshold, test.ShouldEqual, defaultOccupancyThreshold)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("reads yaml", func(t *testing.T) {
		path := filepath.Join(dir, "nav.yaml")
		data := "inflate_radius_m: 0.25\n" +
			"pose_address: 127.0.0.1:5001\n" +
			"occupancy_address: 127.0.0.1:5002\n" +
			"drive_serial_path: /dev/ttyACM0\n" +
			"kp: 0.2\n" +
			"keyboard_enabled: true\n"
		test.That(t, os.WriteFile(path, []byte(data), 0o600), test.ShouldBeNil)

		cfg, err := Load(path)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cfg.InflateRadius, test.ShouldEqual, 0.25)
		test.That(t, cfg.DriveSerialPath, test.ShouldEqual, "/dev/ttyACM0")
		test.That(t, *cfg.KP, test.ShouldEqual, 0.2)
		test.That(t, cfg.KeyboardEnabled, test.ShouldBeTrue)
	})

	t.Run("reads json", func(t *testing.T) {
		path := filepath.Join(dir, "nav.json")
		data := `{"inflate_radius_m": 0.3, "pose_address": ":5001", "occupancy_address": ":5002",
			"drive_address": "10.0.0.2:6000", "prevent_corner_cutting": true}`
		test.That(t, os.WriteFile(path, []byte(data), 0o600), test.ShouldBeNil)

		cfg, err := Load(path)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cfg.InflateRadius, test.ShouldEqual, 0.3)
		test.That(t, cfg.DriveAddress, test.ShouldEqual, "10.0.0.2:6000")
		test.That(t, cfg.PreventCornerCutting, test.ShouldBeTrue)
	})

	t.Run("reads robot components", func(t *testing.T) {
		path := filepath.Join(dir, "robot.yaml")
		data := "inflate_radius_m: 0.25\n" +
			"occupancy_address: 127.0.0.1:5002\n" +
			"robot_address: rover.local:8080\n" +
			"movement_sensor: odometer\n" +
			"pose_frame: gps\n" +
			"base: rover-base\n"
		test.That(t, os.WriteFile(path, []byte(data), 0o600), test.ShouldBeNil)

		cfg, err := Load(path)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cfg.RobotAddress, test.ShouldEqual, "rover.local:8080")
		test.That(t, cfg.MovementSensor, test.ShouldEqual, "odometer")
		test.That(t, cfg.PoseFrame, test.ShouldEqual, "gps")
		test.That(t, cfg.Base, test.ShouldEqual, "rover-base")
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		test.That(t, os.WriteFile(path, []byte("pose_address: 127.0.0.1:5001\n"), 0o600), test.ShouldBeNil)

		_, err := Load(path)
		test.That(t, err, test.ShouldBeError,
			newError(utils.NewConfigValidationFieldRequiredError(path, "inflate_radius_m").Error()))
	})

	t.Run("reports missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "missing.yaml"))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "failed to read config file")
	})
}
