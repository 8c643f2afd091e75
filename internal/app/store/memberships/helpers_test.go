package membershipstore_test

import "go.mongodb.org/mongo-driver/mongo/options"

func upsertOpt() *options.UpdateOptions {
	return options.Update().SetUpsert(true)
}
