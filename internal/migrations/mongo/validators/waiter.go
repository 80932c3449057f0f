package validators

import "go.mongodb.org/mongo-driver/bson"

var WaiterValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"email",
			"location_id",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"email": bson.M{
				"bsonType":  "string",
				"minLength": 3,
			},

			"location_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"name": bson.M{
				"bsonType": "string",
			},
		},
	},
}
