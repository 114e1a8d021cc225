// Command lambda runs the migration pipeline as an AWS Lambda function
// behind an API Gateway HTTP API.
package main

import (
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/flowport/flowport/internal/engine"
	"github.com/flowport/flowport/internal/lambdatransport"
)

func main() {
	pipeline, err := engine.New()
	if err != nil {
		log.Fatalf("pipeline init: %v", err)
	}

	h := lambdatransport.NewHandler(pipeline)
	lambda.Start(h.Handle)
}
