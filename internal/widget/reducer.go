package widget

import (
	"strings"

	"github.com/zhouzirui/z-chat/internal/model/chat"
)

// Reduce applies ev to s and returns the next state together with the
// effects the controller has to run. It has no side effects.
func Reduce(s State, ev Event) (State, []Effect) {
	switch ev := ev.(type) {
	case InputChanged:
		// 乱序到达的旧编辑不能覆盖较新的内容
		if ev.Seq != 0 && ev.Seq < s.InputSeq {
			return s, nil
		}
		s.Input = ev.Text
		s.InputSeq = ev.Seq
		return s, nil

	case Submitted:
		return submit(s)

	case SessionReady:
		s.HasSession = true
		return s, nil

	case SessionFailed:
		// 初始化失败只设置错误，不追加错误消息
		s.HasSession = false
		s.Error = ev.Message
		return s, nil

	case StreamOpened:
		s.Stream, s.Messages = s.Stream.Open(s.Messages)
		return s, nil

	case FragmentReceived:
		s.Stream, s.Messages = s.Stream.Merge(s.Messages, ev.Text)
		return s, nil

	case StreamEnded:
		if !s.Stream.Active() {
			return s, nil
		}
		s.Stream = s.Stream.Finish()
		s.IsLoading = false
		if s.Stream.Text == "" {
			return s, nil
		}
		return s, []Effect{Speak{Text: s.Stream.Text}}

	case StreamFailed:
		if !s.Stream.Active() {
			return s, nil
		}
		s.Stream, s.Messages = s.Stream.Fail(s.Messages, ev.Message)
		s.Error = ev.Message
		s.IsLoading = false
		return s, []Effect{Speak{Text: "I'm sorry, an error occurred: " + ev.Message}}

	case RecordingToggled:
		if !s.RecognitionSupported || s.IsLoading || !s.HasSession {
			return s, nil
		}
		if s.IsRecording {
			return s, []Effect{StopRecognition{}}
		}
		// 乐观更新，真正结束以 RecognitionEnded 为准
		s.IsRecording = true
		return s, []Effect{StartRecognition{}}

	case TranscriptReceived:
		if !ev.IsFinal {
			return s, nil
		}
		s.Input = AppendTranscript(s.Input, ev.Transcript)
		return s, nil

	case RecognitionFailed:
		s.Error = "Speech recognition error: " + string(ev.Code)
		return s, nil

	case RecognitionEnded:
		s.IsRecording = false
		return s, nil

	case SpeechToggled:
		s.IsSpeechEnabled = !s.IsSpeechEnabled
		return s, []Effect{SetSpeechEnabled{Enabled: s.IsSpeechEnabled}}
	}

	return s, nil
}

func submit(s State) (State, []Effect) {
	if strings.TrimSpace(s.Input) == "" || s.IsLoading || !s.HasSession {
		return s, nil
	}

	text := s.Input
	s.Messages = s.Messages.Append(chat.UserMessage(text))
	s.Input = ""
	s.IsLoading = true
	s.Error = ""
	s.Stream = s.Stream.Begin()
	return s, []Effect{OpenStream{Text: text}}
}

// AppendTranscript adds a recognized transcript to the compose text,
// separated by a single space when the compose text is not empty.
func AppendTranscript(compose, transcript string) string {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return compose
	}
	if compose == "" {
		return transcript
	}
	return compose + " " + transcript
}
