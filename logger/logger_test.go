package logger_test

import (
	"bytes"
	"encoding/json"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/relloyd/obspipe/logger"
)

var _ = Describe("Logger", func() {
	log := logger.NewLogger("test-service", "debug", true)

	capture := func(fn func()) map[string]interface{} {
		logOutput := bytes.NewBufferString("")
		log.SetOutput(logOutput)
		fn()
		var actual map[string]interface{}
		_ = json.Unmarshal(logOutput.Bytes(), &actual)
		return actual
	}

	It("Should have `test-service` as service name", func() {
		actual := capture(func() { log.Info("Testing") })
		Expect(actual["service"]).To(Equal("test-service"))
	})

	It("Should have info as log level", func() {
		actual := capture(func() { log.Info("Testing") })
		Expect(actual["level"]).To(Equal("info"))
	})

	It("Should have warn as log level", func() {
		actual := capture(func() { log.Warn("Testing") })
		Expect(actual["level"]).To(Equal("warning"))
	})

	It("Should have error as log level with a stack trace", func() {
		actual := capture(func() { log.Error("Testing") })
		Expect(actual["level"]).To(Equal("error"))
		Expect(actual["stackTrace"]).ToNot(BeNil())
	})

	It("Should have `Testing` as msg", func() {
		actual := capture(func() { log.Info("Testing") })
		Expect(actual["msg"]).To(Equal("Testing"))
	})

	It("Should carry fields on child loggers", func() {
		child := log.WithField("batch", 2).WithFields(map[string]interface{}{"table": "programs"})
		actual := capture(func() { child.Info("Testing") })
		Expect(actual["service"]).To(Equal("test-service"))
		Expect(actual["batch"]).To(BeNumerically("==", 2))
		Expect(actual["table"]).To(Equal("programs"))
	})

	It("Should log the whole message at trace level", func() {
		traceLog := logger.NewLogger("test-service", "trace", false)
		logOutput := bytes.NewBufferString("")
		traceLog.SetOutput(logOutput)
		traceLog.Error("Testing ", 2)
		var actual map[string]interface{}
		_ = json.Unmarshal(logOutput.Bytes(), &actual)
		Expect(actual["msg"]).To(Equal("Testing 2"))
	})
})
