// Package mongo connects to MongoDB with the official v2 driver and exposes a
// readiness probe. The two-factor Mongo record store takes the *mongo.Database
// returned by ConnectDatabase.
package mongo
