package gpu_test

import "ray-tracer/internal/gpu"

const quadVert = `
in vec2 pos;
in vec2 uv;
out vec2 frag_uv;
uniform mat4 mvp;
void main() {
    frag_uv = uv;
    gl_Position = mvp * vec4(pos, 0.0, 1.0);
}
`

const quadFrag = `
in vec2 frag_uv;
out vec4 color;
uniform sampler2D mySampler;
void main() {
    color = texture(mySampler, frag_uv);
}
`

const traceComp = `
layout(local_size_x = 8, local_size_y = 8) in;
layout(rgba16f, binding = 0) uniform writeonly image2D img_output;
uniform vec3 eye;
uniform vec3 scene_center;
uniform vec3 raw_up;
uniform vec2 screen_size;
uniform float near;
void main() {
    ivec2 p = ivec2(gl_GlobalInvocationID.xy);
    imageStore(img_output, p, vec4(eye + scene_center + raw_up, near));
}
`

func vertex(src string) gpu.StageSource {
	return gpu.StageSource{Stage: gpu.StageVertex, File: "quad.v.glsl", Source: src}
}

func fragment(src string) gpu.StageSource {
	return gpu.StageSource{Stage: gpu.StageFragment, File: "quad.f.glsl", Source: src}
}

func compute(src string) gpu.StageSource {
	return gpu.StageSource{Stage: gpu.StageCompute, File: "trace.c.glsl", Source: src}
}
