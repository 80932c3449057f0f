package validators

import "go.mongodb.org/mongo-driver/bson"

var ReservationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"location_id",
			"table_id",
			"table_number",
			"slot_id",
			"date",
			"customer_email",
			"guests",
			"status",
			"created_at",
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

			"table_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"table_number": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"slot_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"date": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}$`,
			},

			"customer_email": bson.M{
				"bsonType":  "string",
				"minLength": 3,
			},

			"waiter_email": bson.M{
				"bsonType": "string",
			},

			"guests": bson.M{
				"bsonType": "int",
				"minimum":  1,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"Reserved",
					"InProgress",
					"Finished",
					"Cancelled",
				},
			},

			"secret_code": bson.M{
				"bsonType": "string",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
