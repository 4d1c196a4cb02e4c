// Package client provides a Go SDK for the HealthyDuck fitness API.
//
// The HealthyDuck API stores fitness data per user: data sources (typed
// channels of measurements), datasets of data points inside a data source,
// activity sessions, and server-side aggregation into time buckets.
//
// # Quick Start
//
//	c := client.New(
//	    client.WithBaseURL("https://healthyduck.example.com"),
//	    client.WithAccessToken(token),
//	)
//	sources, err := c.ListDataSources(ctx, userID)
//
// # Data Points
//
// Points are written to a dataset of a data source. Dataset ids are derived
// from a time range or a calendar day:
//
//	p := client.CreateStepsDataPoint(2500, start, end)
//	err := c.InsertDataPoints(ctx, userID, streamID, client.DatasetIDForRange(start, end), []client.DataPoint{p})
//
// Values are a sum type; build them with IntValue, FloatValue, StringValue or
// BoolValue and inspect them with Kind and the typed accessors.
//
// # Errors
//
// Every method issues exactly one HTTP request, except BulkInsertSteps which
// issues one per day. Transport failures, non-2xx responses and undecodable
// bodies are all reported as *APIError:
//
//	var apiErr *client.APIError
//	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound { ... }
//
// Nothing is retried, and records are not validated on the caller's behalf;
// see DataPoint.Validate and Session.Validate.
package client
