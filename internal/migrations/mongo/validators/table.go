package validators

import "go.mongodb.org/mongo-driver/bson"

var TableValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"location_id",
			"table_number",
			"capacity",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"location_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"table_number": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"capacity": bson.M{
				"bsonType": "int",
				"minimum":  1,
				"maximum":  100,
			},
		},
	},
}
