package fake

import (
	"context"
	"image"
	"testing"

	"go.viam.com/test"

	"github.com/viamrobotics/keyframe-vo/vo"
)

func testCalibration() vo.Calibration {
	return vo.Calibration{
		Intrinsics: vo.Intrinsics{Width: 64, Height: 48, Fx: 100, Fy: 100, Ppx: 32, Ppy: 24},
		Baseline:   0.1,
	}
}

func TestEngineDeterministic(t *testing.T) {
	ctx := context.Background()
	source := NewSource(5, 64, 48)

	run := func() []*vo.Result {
		engine, err := NewEngine(testCalibration(), vo.DefaultAlgorithmConfig())
		test.That(t, err, test.ShouldBeNil)
		var results []*vo.Result
		for i := 0; i < 5; i++ {
			frame, err := source.GetFrame(ctx, i)
			test.That(t, err, test.ShouldBeNil)
			result, err := engine.AddFrame(ctx, frame)
			test.That(t, err, test.ShouldBeNil)
			results = append(results, result)
		}
		test.That(t, engine.Close(), test.ShouldBeNil)
		return results
	}

	first := run()
	second := run()
	for i := range first {
		test.That(t, vo.PoseAlmostEqual(first[i].Pose, second[i].Pose, 1e-12), test.ShouldBeTrue)
		test.That(t, first[i].Stats, test.ShouldResemble, second[i].Stats)
		test.That(t, first[i].PointCount, test.ShouldEqual, second[i].PointCount)
	}

	test.That(t, first[0].KeyFramingReason, test.ShouldEqual, vo.KeyFramingReasonFirstFrame)
	test.That(t, first[0].IsKeyFrame, test.ShouldBeTrue)
	test.That(t, first[1].IsKeyFrame, test.ShouldBeFalse)
	test.That(t, first[2].KeyFramingReason, test.ShouldEqual, vo.KeyFramingReasonLargeTranslation)
	test.That(t, first[2].IsKeyFrame, test.ShouldBeTrue)

	// the whole 8 pixel sampling grid carries valid disparity
	test.That(t, first[0].PointCount, test.ShouldEqual, 48)
	for _, result := range first {
		test.That(t, result.CheckValid(0, 50), test.ShouldBeNil)
		test.That(t, result.Pose.Translation().Z, test.ShouldAlmostEqual, 0.1, 1e-9)
	}
}

func TestEngineSaturation(t *testing.T) {
	ctx := context.Background()
	source := NewSource(5, 64, 48)
	engine, err := NewEngine(testCalibration(), vo.DefaultAlgorithmConfig())
	test.That(t, err, test.ShouldBeNil)
	engine.SaturateFrames = map[int]bool{3: true}

	for i := 0; i < 5; i++ {
		frame, err := source.GetFrame(ctx, i)
		test.That(t, err, test.ShouldBeNil)
		result, err := engine.AddFrame(ctx, frame)
		test.That(t, err, test.ShouldBeNil)
		if i == 3 {
			test.That(t, result.Stats[0].NumIterations, test.ShouldEqual, 50)
		} else {
			test.That(t, result.Stats[0].NumIterations, test.ShouldBeLessThan, 50)
		}
	}
}

func TestEngineFewGoodPoints(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(testCalibration(), vo.DefaultAlgorithmConfig())
	test.That(t, err, test.ShouldBeNil)

	source := NewSource(1, 64, 48)
	frame, err := source.GetFrame(ctx, 0)
	test.That(t, err, test.ShouldBeNil)
	_, err = engine.AddFrame(ctx, frame)
	test.That(t, err, test.ShouldBeNil)

	// a frame with no usable disparity forces a keyframe
	empty := &vo.Frame{
		Index:     1,
		Image:     image.NewGray(image.Rect(0, 0, 64, 48)),
		Disparity: vo.NewDisparityMap(64, 48),
	}
	result, err := engine.AddFrame(ctx, empty)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.KeyFramingReason, test.ShouldEqual, vo.KeyFramingReasonFewGoodPoints)
	test.That(t, result.IsKeyFrame, test.ShouldBeTrue)
	test.That(t, result.PointCount, test.ShouldEqual, 0)
}

func TestEngineFailures(t *testing.T) {
	ctx := context.Background()
	source := NewSource(5, 64, 48)

	engine, err := NewEngine(testCalibration(), vo.DefaultAlgorithmConfig())
	test.That(t, err, test.ShouldBeNil)
	engine.FailAt = 1

	frame, err := source.GetFrame(ctx, 0)
	test.That(t, err, test.ShouldBeNil)
	_, err = engine.AddFrame(ctx, frame)
	test.That(t, err, test.ShouldBeNil)
	_, err = engine.AddFrame(ctx, frame)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "injected failure at frame 1")

	// frames must match the calibrated sensor size
	engine, err = NewEngine(testCalibration(), vo.DefaultAlgorithmConfig())
	test.That(t, err, test.ShouldBeNil)
	tiny := &vo.Frame{
		Image:     image.NewGray(image.Rect(0, 0, 32, 32)),
		Disparity: vo.NewDisparityMap(32, 32),
	}
	_, err = engine.AddFrame(ctx, tiny)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "does not match calibration")

	canceledCtx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = engine.AddFrame(canceledCtx, frame)
	test.That(t, err, test.ShouldNotBeNil)

	badCalibration := testCalibration()
	badCalibration.Baseline = -1
	_, err = NewEngine(badCalibration, vo.DefaultAlgorithmConfig())
	test.That(t, err, test.ShouldNotBeNil)
}
