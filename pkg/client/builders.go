package client

import "time"

// DefaultApplication identifies this library as the owning application.
func DefaultApplication() Application {
	return Application{
		PackageName: "com.ultimatequack.healthyduck.go",
		Version:     "1.0",
		Name:        "HealthyDuck Go Client",
	}
}

// CreateStepsDataPoint returns a step-count delta point with a single integer value.
func CreateStepsDataPoint(steps int64, start, end time.Time) DataPoint {
	return DataPoint{
		StartTimeNanos: start.UnixNano(),
		EndTimeNanos:   end.UnixNano(),
		DataTypeName:   StepCountDelta,
		Values:         []Value{IntValue(steps)},
	}
}

// CreateCaloriesDataPoint returns a calories-expended point with a single float value.
func CreateCaloriesDataPoint(calories float64, start, end time.Time) DataPoint {
	return DataPoint{
		StartTimeNanos: start.UnixNano(),
		EndTimeNanos:   end.UnixNano(),
		DataTypeName:   CaloriesExpended,
		Values:         []Value{FloatValue(calories)},
	}
}

// StepsDataSource returns a derived data source descriptor for step counts.
func StepsDataSource(streamID, name string) DataSource {
	return DataSource{
		DataStreamID:   streamID,
		DataStreamName: name,
		Type:           DataSourceDerived,
		Application:    DefaultApplication(),
		DataTypes: []DataType{{
			Name:   StepCountDelta,
			Fields: []DataTypeField{{Name: "steps", Format: FormatInteger}},
		}},
	}
}
