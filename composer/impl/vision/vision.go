package vision

import (
	"context"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	gax "github.com/googleapis/gax-go/v2"
)

// Client is an interface for the vision.ImageAnnotatorClient
// Ref: https://pkg.go.dev/cloud.google.com/go/vision/apiv1
// This interface is used for mocking the vision.ImageAnnotatorClient in unit tests.
type Client interface {
	LocalizeObjects(ctx context.Context, image *visionpb.Image, imageContext *visionpb.ImageContext, opts ...gax.CallOption) ([]*visionpb.LocalizedObjectAnnotation, error)
}

// Subject is a detected object in pixel coordinates.
type Subject struct {
	// E.g., "Person"
	Name  string
	Score float32
	Left, Top, Right, Bottom int
}

// DetectSubjects localizes objects in imageBytes and converts their normalized bounding
// polygons to pixel boxes on a width x height image.
func DetectSubjects(ctx context.Context, client Client, imageBytes []byte, width int, height int) ([]Subject, error) {
	annotations, err := client.LocalizeObjects(ctx, &visionpb.Image{Content: imageBytes}, nil)
	if err != nil {
		return nil, err
	}

	subjects := make([]Subject, 0, len(annotations))
	for _, annotation := range annotations {
		vertices := annotation.GetBoundingPoly().GetNormalizedVertices()
		if len(vertices) == 0 {
			continue
		}
		minX, minY := float32(1), float32(1)
		maxX, maxY := float32(0), float32(0)
		for _, vertex := range vertices {
			minX = min(minX, vertex.GetX())
			minY = min(minY, vertex.GetY())
			maxX = max(maxX, vertex.GetX())
			maxY = max(maxY, vertex.GetY())
		}
		subjects = append(subjects, Subject{
			Name:   annotation.GetName(),
			Score:  annotation.GetScore(),
			Left:   int(minX * float32(width)),
			Top:    int(minY * float32(height)),
			Right:  int(maxX * float32(width)),
			Bottom: int(maxY * float32(height)),
		})
	}
	return subjects, nil
}
