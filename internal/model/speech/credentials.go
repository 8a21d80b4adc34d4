package speech

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingCredentials 所选识别服务缺少凭证
var ErrMissingCredentials = errors.New("transcription credentials missing")

// VolcengineCredentials 返回规范化后的 AppID 与 AccessToken，AccessToken 为空时回退到 APIKey。
func (c *SpeechConfig) VolcengineCredentials() (appID, token string, err error) {
	if c == nil {
		return "", "", fmt.Errorf("%w: volcengine config not initialized", ErrMissingCredentials)
	}

	appID = strings.TrimSpace(c.AppID)
	token = strings.TrimSpace(c.AccessToken)
	if token == "" {
		token = strings.TrimSpace(c.APIKey)
	}
	if appID == "" || token == "" {
		return "", "", fmt.Errorf("%w: volcengine needs SPEECH_APP_ID and SPEECH_ACCESS_TOKEN", ErrMissingCredentials)
	}
	return appID, token, nil
}

// WhisperKey 返回 OpenAI key
func (c *SpeechConfig) WhisperKey() (string, error) {
	if c == nil || strings.TrimSpace(c.OpenAIKey) == "" {
		return "", fmt.Errorf("%w: whisper needs OPENAI_API_KEY", ErrMissingCredentials)
	}
	return strings.TrimSpace(c.OpenAIKey), nil
}

// CheckCredentials 校验 provider 所需的凭证，空 provider 视为 whisper
func (c *SpeechConfig) CheckCredentials(provider string) error {
	switch provider {
	case "", "whisper":
		_, err := c.WhisperKey()
		return err
	case "volcengine":
		_, _, err := c.VolcengineCredentials()
		return err
	default:
		return fmt.Errorf("unknown transcription provider %q", provider)
	}
}
