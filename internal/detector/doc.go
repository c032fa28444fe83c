// Package detector supplies the constellation detector that feeds the
// overlay pipeline.
//
// The detector itself is a trained object-detection model that lives outside
// this module. Three adapters reach it:
//
//   - HTTPDetector posts the image to an inference service and reads back
//     labeled boxes
//   - LabelFileDetector reads YOLO label files the model already wrote
//   - StaticDetector returns a fixed answer, for callers that already hold
//     detections
//
// All of them return Detections, an ordered label → boxes mapping whose
// boxes are normalized center-form rectangles.
package detector
